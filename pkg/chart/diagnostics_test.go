package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"
)

func TestLogSinkWritesWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := bolt.New(bolt.NewJSONHandler(&buf)).SetLevel(bolt.WARN)

	c, err := New(SimpleLine, 100, 50, WithLogger(logger), WithYRange(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	c.AddData(Dataset{30})
	if _, err := c.URL(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"value clipped to encoding range", `"encoding":"simple"`, `"value":"30"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestClipEventCarriesDatasetIndex(t *testing.T) {
	rec := &Recorder{}
	c, err := New(SimpleLine, 100, 50, WithSink(rec), WithYRange(0, 10), WithEncoding(Simple))
	if err != nil {
		t.Fatal(err)
	}
	c.AddData(Dataset{1, 2})
	c.AddData(Dataset{3, 40})
	if _, err := c.URL(); err != nil {
		t.Fatal(err)
	}
	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if ev := events[0]; ev.Dataset != 1 || ev.Index != 1 || ev.Value != 40 || ev.Result != 61 {
		t.Errorf("got %+v, want dataset 1 index 1 value 40 result 61", ev)
	}
}

func TestRecorderReset(t *testing.T) {
	rec := &Recorder{}
	rec.Report(Event{Kind: EventClipped})
	rec.Report(Event{Kind: "other"})
	if rec.Count(EventClipped) != 1 || len(rec.Events()) != 2 {
		t.Errorf("got %d clipped of %d", rec.Count(EventClipped), len(rec.Events()))
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Error("Reset left events behind")
	}
}
