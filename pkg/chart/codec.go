package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dataset is one ordered series of values. Missing entries hold Missing.
type Dataset []float64

// Missing marks an absent value in a Dataset. It is distinct from zero and
// encodes to each encoding's gap symbol.
var Missing = math.NaN()

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Range is a closed scaling interval.
type Range struct {
	Lower float64
	Upper float64
}

func (r Range) String() string {
	return "[" + formatFloat(r.Lower) + ", " + formatFloat(r.Upper) + "]"
}

// Scaled is the outcome of scaling one value.
type Scaled struct {
	Value     float64 // scaled and clipped
	Unclipped float64 // scaled, before clipping
	Clipped   bool    // Value differs from Unclipped
}

// Encoding is one of the three data encodings understood by the chart service.
type Encoding interface {
	// Name is the config/CLI name: "simple", "text" or "extended".
	Name() string

	// MaxValue is the largest encodable value.
	MaxValue() float64

	// ScaleValue maps value from r onto [0, MaxValue()].
	ScaleValue(value float64, r Range) (Scaled, error)

	// Encode serializes already-scaled datasets into a "chd=" fragment.
	Encode(data []Dataset) (string, error)
}

// The three encodings.
var (
	Simple   Encoding = simpleEncoding{}
	Text     Encoding = textEncoding{}
	Extended Encoding = extendedEncoding{}
)

const (
	simpleAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	extendedAlphabet = simpleAlphabet + "-."
)

// EncodingByName returns the encoding for "simple", "text" or "extended".
func EncodingByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple", "s":
		return Simple, nil
	case "text", "t":
		return Text, nil
	case "extended", "e":
		return Extended, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// floatScale is the linear map shared by every encoding. It fails on a
// zero-width range instead of producing Inf/NaN.
func floatScale(maxValue, value float64, r Range) (float64, error) {
	if r.Upper == r.Lower {
		return 0, fmt.Errorf("chart: scale %s over %s: %w", formatFloat(value), r, ErrZeroRange)
	}
	return (value - r.Lower) * (maxValue / (r.Upper - r.Lower)), nil
}

func clip(maxValue, v float64) Scaled {
	out := math.Max(0, math.Min(v, maxValue))
	return Scaled{Value: out, Unclipped: v, Clipped: out != v}
}

// intScale rounds half away from zero before clipping, so that the result
// is a valid alphabet index.
func intScale(maxValue, value float64, r Range) (Scaled, error) {
	s, err := floatScale(maxValue, value, r)
	if err != nil {
		return Scaled{}, err
	}
	return clip(maxValue, math.Round(s)), nil
}

// --- Simple: one character per value ---

type simpleEncoding struct{}

func (simpleEncoding) Name() string      { return "simple" }
func (simpleEncoding) MaxValue() float64 { return 61 }

func (e simpleEncoding) ScaleValue(value float64, r Range) (Scaled, error) {
	return intScale(e.MaxValue(), value, r)
}

func (e simpleEncoding) Encode(data []Dataset) (string, error) {
	groups := make([]string, 0, len(data))
	for d, ds := range data {
		var b strings.Builder
		for i, v := range ds {
			switch {
			case IsMissing(v):
				b.WriteByte('_')
			case v >= 0 && v <= e.MaxValue():
				b.WriteByte(simpleAlphabet[int(v)])
			default:
				return "", &RangeError{Encoding: e.Name(), Dataset: d, Index: i, Value: v}
			}
		}
		groups = append(groups, b.String())
	}
	return "chd=s:" + strings.Join(groups, ","), nil
}

// --- Text: one decimal place, plain text ---

type textEncoding struct{}

func (textEncoding) Name() string      { return "text" }
func (textEncoding) MaxValue() float64 { return 100 }

// ScaleValue keeps fractional precision. An inverted or empty range returns
// r.Lower unscaled; Simple and Extended do not share this guard.
func (e textEncoding) ScaleValue(value float64, r Range) (Scaled, error) {
	if r.Upper <= r.Lower {
		return Scaled{Value: r.Lower, Unclipped: r.Lower}, nil
	}
	s, err := floatScale(e.MaxValue(), value, r)
	if err != nil {
		return Scaled{}, err
	}
	return clip(e.MaxValue(), s), nil
}

func (e textEncoding) Encode(data []Dataset) (string, error) {
	groups := make([]string, 0, len(data))
	for d, ds := range data {
		items := make([]string, 0, len(ds))
		for i, v := range ds {
			switch {
			case IsMissing(v):
				items = append(items, "-1")
			case v >= 0 && v <= e.MaxValue():
				items = append(items, strconv.FormatFloat(v, 'f', 1, 64))
			default:
				return "", &RangeError{Encoding: e.Name(), Dataset: d, Index: i, Value: v}
			}
		}
		groups = append(groups, strings.Join(items, ","))
	}
	return "chd=t:" + strings.Join(groups, "|"), nil
}

// --- Extended: two characters per value, base 64 ---

type extendedEncoding struct{}

func (extendedEncoding) Name() string      { return "extended" }
func (extendedEncoding) MaxValue() float64 { return 4095 }

func (e extendedEncoding) ScaleValue(value float64, r Range) (Scaled, error) {
	return intScale(e.MaxValue(), value, r)
}

func (e extendedEncoding) Encode(data []Dataset) (string, error) {
	size := len(extendedAlphabet)
	groups := make([]string, 0, len(data))
	for d, ds := range data {
		var b strings.Builder
		for i, v := range ds {
			switch {
			case IsMissing(v):
				b.WriteString("__")
			case v >= 0 && v <= e.MaxValue():
				n := int(v)
				b.WriteByte(extendedAlphabet[n/size])
				b.WriteByte(extendedAlphabet[n%size])
			default:
				return "", &RangeError{Encoding: e.Name(), Dataset: d, Index: i, Value: v}
			}
		}
		groups = append(groups, b.String())
	}
	return "chd=e:" + strings.Join(groups, ","), nil
}
