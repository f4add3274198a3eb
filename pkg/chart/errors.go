package chart

import (
	"errors"
	"fmt"
)

// --- Sentinel errors ---

// ErrInvalidParameters is the class of every configuration error raised by
// a setter: malformed colours, bad parameter combinations, unknown axes.
var ErrInvalidParameters = errors.New("invalid parameters")

// ErrUnknownAxis is returned when an axis index has not been created.
var ErrUnknownAxis = errors.New("unknown axis")

// ErrDataOutOfRange is returned when a value cannot be represented by an encoding.
var ErrDataOutOfRange = errors.New("data out of range")

// ErrZeroRange is returned when a scaling range has equal bounds.
var ErrZeroRange = errors.New("scaling range has zero width")

// ErrNoData is returned when a URL is requested from a chart that requires data.
var ErrNoData = errors.New("no data given")

// ErrBadContentType is returned when the chart service answers with something
// other than an image.
var ErrBadContentType = errors.New("bad content type")

// ErrUnknownEncoding is returned for an encoding name that is not simple, text or extended.
var ErrUnknownEncoding = errors.New("unknown data encoding")

// ErrUnknownChartType is returned when a type tag has no registered constructor.
var ErrUnknownChartType = errors.New("unknown chart type")

// ConfigError reports an invalid setter call.
type ConfigError struct {
	Op     string // setter that rejected the call, e.g. "SetGroupSpacing"
	Detail string
	Err    error // optional more specific sentinel, e.g. ErrUnknownAxis
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chart: %s: %s", e.Op, e.Detail)
}

// Unwrap exposes both ErrInvalidParameters and the specific cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidParameters, e.Err}
	}
	return []error{ErrInvalidParameters}
}

func configErr(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// RangeError reports a value an encoding cannot represent. It indicates a
// scaling bug or unscaled input, not a recoverable clip.
type RangeError struct {
	Encoding string
	Dataset  int
	Index    int
	Value    float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("chart: %s encoding: dataset %d item #%d (%v) is out of range",
		e.Encoding, e.Dataset, e.Index, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrDataOutOfRange }

// NoDataError is returned by URL for chart types that mandate data.
type NoDataError struct {
	ChartType string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("chart: %s chart has no data", e.ChartType)
}

func (e *NoDataError) Unwrap() error { return ErrNoData }

// ContentTypeError is returned by Download when the response is not an image.
type ContentTypeError struct {
	Got     string
	Want    string
	Summary string // readable text of an HTML/plain error body, if any
}

func (e *ContentTypeError) Error() string {
	msg := fmt.Sprintf("chart: server responded with a content-type of %q, want %q", e.Got, e.Want)
	if e.Summary != "" {
		msg += ": " + e.Summary
	}
	return msg
}

func (e *ContentTypeError) Unwrap() error { return ErrBadContentType }
