package chart

import (
	"strconv"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

// EventKind classifies a recoverable condition.
type EventKind string

// EventClipped is reported when a scaled value fell outside the encoding's
// representable range and was forced to the nearest bound.
const EventClipped EventKind = "clipped"

// Event is a recoverable, non-fatal condition observed while scaling.
type Event struct {
	Kind     EventKind
	Encoding string
	Dataset  int // index into the chart's datasets
	Index    int
	Value    float64 // raw input
	Scaled   float64 // value before clipping
	Result   float64 // value after clipping
}

// Sink receives recoverable events. Charts report to their sink instead of
// failing; tests install a Recorder to assert on them.
type Sink interface {
	Report(Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Event) {}

// Recorder keeps every reported event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report implements Sink.
func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// LogSink writes events to a bolt logger at warn level.
type LogSink struct {
	Logger *bolt.Logger
}

// Report implements Sink.
func (s LogSink) Report(ev Event) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn().
		Str("component", "chart").
		Str("event", string(ev.Kind)).
		Str("encoding", ev.Encoding).
		Int("dataset", ev.Dataset).
		Int("index", ev.Index).
		Str("value", formatFloat(ev.Value)).
		Str("result", formatFloat(ev.Result)).
		Msg("value clipped to encoding range")
}

// formatFloat renders v the shortest way that round-trips: 0.5, 10, 13.5.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
