package chart

import (
	"strconv"
	"strings"
)

// AxisType selects which side of the chart an axis is drawn on.
type AxisType string

const (
	AxisBottom AxisType = "x"
	AxisTop    AxisType = "t"
	AxisLeft   AxisType = "y"
	AxisRight  AxisType = "r"
)

func (t AxisType) valid() bool {
	switch t {
	case AxisBottom, AxisTop, AxisLeft, AxisRight:
		return true
	}
	return false
}

// Alignment of axis labels relative to their tick.
type Alignment int

const (
	AlignLeft   Alignment = -1
	AlignCentre Alignment = 0
	AlignRight  Alignment = 1
)

// Axis is either a label axis (fixed strings) or a range axis (low..high).
type Axis struct {
	index     int
	axisType  AxisType
	labels    []string // percent-encoded; nil for a range axis
	ranged    bool
	low, high float64
	positions []float64
	style     *axisStyle
}

type axisStyle struct {
	colour    string
	fontSize  float64
	hasFont   bool
	alignment Alignment
	hasAlign  bool
}

// AxisStyleOption customizes SetAxisStyle.
type AxisStyleOption func(*axisStyle)

// WithFontSize sets the label font size.
func WithFontSize(size float64) AxisStyleOption {
	return func(s *axisStyle) {
		s.fontSize = size
		s.hasFont = true
	}
}

// WithAlignment sets the label alignment. It is only sent when a font size
// is also set.
func WithAlignment(a Alignment) AxisStyleOption {
	return func(s *axisStyle) {
		s.alignment = a
		s.hasAlign = true
	}
}

// Index returns the axis position in the chart's axis sequence.
func (a *Axis) Index() int { return a.index }

// SetIndex explicitly resets the axis index.
func (a *Axis) SetIndex(i int) { a.index = i }

// Type returns the axis side.
func (a *Axis) Type() AxisType { return a.axisType }

// IsRange reports whether this is a range axis.
func (a *Axis) IsRange() bool { return a.ranged }

// Labels returns the encoded labels of a label axis.
func (a *Axis) Labels() []string { return a.labels }

// Bounds returns the low and high values of a range axis.
func (a *Axis) Bounds() (low, high float64) { return a.low, a.high }

func (a *Axis) spec() string {
	idx := strconv.Itoa(a.index)
	if a.ranged {
		return idx + "," + formatFloat(a.low) + "," + formatFloat(a.high)
	}
	return idx + ":|" + strings.Join(a.labels, "|")
}

func (a *Axis) positionsSpec() string {
	bits := []string{strconv.Itoa(a.index)}
	for _, p := range a.positions {
		bits = append(bits, formatFloat(p))
	}
	return strings.Join(bits, ",")
}

func (a *Axis) styleSpec() string {
	bits := []string{strconv.Itoa(a.index), a.style.colour}
	if a.style.hasFont {
		bits = append(bits, formatFloat(a.style.fontSize))
		if a.style.hasAlign {
			bits = append(bits, strconv.Itoa(int(a.style.alignment)))
		}
	}
	return strings.Join(bits, ",")
}

// SetAxisLabels appends a label axis and returns its index.
func (c *Chart) SetAxisLabels(axisType AxisType, labels []string) (int, error) {
	if !axisType.valid() {
		return 0, configErr("SetAxisLabels", "invalid axis type %q", axisType)
	}
	encoded := make([]string, len(labels))
	for i, l := range labels {
		encoded[i] = quote(l)
	}
	return c.appendAxis(&Axis{axisType: axisType, labels: encoded}), nil
}

// SetAxisRange appends a range axis and returns its index.
func (c *Chart) SetAxisRange(axisType AxisType, low, high float64) (int, error) {
	if !axisType.valid() {
		return 0, configErr("SetAxisRange", "invalid axis type %q", axisType)
	}
	return c.appendAxis(&Axis{axisType: axisType, ranged: true, low: low, high: high}), nil
}

func (c *Chart) appendAxis(a *Axis) int {
	a.index = len(c.axes)
	c.axes = append(c.axes, a)
	return a.index
}

// Axis returns the axis at index i.
func (c *Chart) Axis(i int) (*Axis, error) {
	if i < 0 || i >= len(c.axes) {
		return nil, &ConfigError{
			Op:     "Axis",
			Detail: "axis index " + strconv.Itoa(i) + " has not been created",
			Err:    ErrUnknownAxis,
		}
	}
	return c.axes[i], nil
}

// Axes returns the chart's axes in creation order.
func (c *Chart) Axes() []*Axis { return c.axes }

// SetAxisPositions places the labels of axis i at custom positions.
func (c *Chart) SetAxisPositions(i int, positions []float64) error {
	a, err := c.Axis(i)
	if err != nil {
		return err
	}
	a.positions = append([]float64(nil), positions...)
	return nil
}

// SetAxisStyle sets colour, and optionally font size and alignment, of axis i.
func (c *Chart) SetAxisStyle(i int, colour string, opts ...AxisStyleOption) error {
	a, err := c.Axis(i)
	if err != nil {
		return err
	}
	if err := checkColour("SetAxisStyle", colour); err != nil {
		return err
	}
	s := &axisStyle{colour: colour}
	for _, opt := range opts {
		opt(s)
	}
	a.style = s
	return nil
}

// axisFragment renders chxt, chxl, chxr, chxp and chxs, omitting empty ones.
func (c *Chart) axisFragment() string {
	if len(c.axes) == 0 {
		return ""
	}
	var types, labels, ranges, positions, styles []string
	for _, a := range c.axes {
		types = append(types, string(a.axisType))
		if a.ranged {
			ranges = append(ranges, a.spec())
		} else {
			labels = append(labels, a.spec())
		}
		if len(a.positions) > 0 {
			positions = append(positions, a.positionsSpec())
		}
		if a.style != nil {
			styles = append(styles, a.styleSpec())
		}
	}
	bits := []string{"chxt=" + strings.Join(types, ",")}
	if len(labels) > 0 {
		bits = append(bits, "chxl="+strings.Join(labels, "|"))
	}
	if len(ranges) > 0 {
		bits = append(bits, "chxr="+strings.Join(ranges, "|"))
	}
	if len(positions) > 0 {
		bits = append(bits, "chxp="+strings.Join(positions, "|"))
	}
	if len(styles) > 0 {
		bits = append(bits, "chxs="+strings.Join(styles, "|"))
	}
	return strings.Join(bits, "&")
}
