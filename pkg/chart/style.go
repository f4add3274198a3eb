package chart

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// quote percent-encodes free text the way the chart service expects:
// spaces as %20, '/' left alone.
func quote(s string) string {
	q := url.QueryEscape(s)
	q = strings.ReplaceAll(q, "+", "%20")
	return strings.ReplaceAll(q, "%2F", "/")
}

// --- Fills (chf) ---

// FillArea is the region a fill applies to.
type FillArea string

const (
	FillBackground FillArea = "bg"
	FillChartArea  FillArea = "c"
	FillAlpha      FillArea = "a"
)

// fillAreas is the serialization order.
var fillAreas = []FillArea{FillBackground, FillChartArea, FillAlpha}

func (a FillArea) valid() bool {
	for _, v := range fillAreas {
		if a == v {
			return true
		}
	}
	return false
}

// FillType is the fill style.
type FillType string

const (
	FillSolid          FillType = "s"
	FillLinearGradient FillType = "lg"
	FillLinearStripes  FillType = "ls"
)

type fill struct {
	kind FillType
	spec string
}

// ColourStop is one colour of a gradient or stripe fill. Offset is in [0, 1].
type ColourStop struct {
	Colour string
	Offset float64
}

// Fill returns the fill type and spec set for area, if any.
func (c *Chart) Fill(area FillArea) (FillType, string, bool) {
	f, ok := c.fills[area]
	return f.kind, f.spec, ok
}

// FillSolid fills area with one colour.
func (c *Chart) FillSolid(area FillArea, colour string) error {
	if !area.valid() {
		return configErr("FillSolid", "invalid fill area %q", area)
	}
	if err := checkColour("FillSolid", colour); err != nil {
		return err
	}
	c.fills[area] = fill{kind: FillSolid, spec: colour}
	return nil
}

// FillLinearGradient fills area with a gradient at angle degrees (0-90).
func (c *Chart) FillLinearGradient(area FillArea, angle float64, stops ...ColourStop) error {
	spec, err := linearFillSpec("FillLinearGradient", area, angle, stops)
	if err != nil {
		return err
	}
	c.fills[area] = fill{kind: FillLinearGradient, spec: spec}
	return nil
}

// FillLinearStripes fills area with stripes at angle degrees (0-90). Each
// stop's offset is the stripe width.
func (c *Chart) FillLinearStripes(area FillArea, angle float64, stops ...ColourStop) error {
	spec, err := linearFillSpec("FillLinearStripes", area, angle, stops)
	if err != nil {
		return err
	}
	c.fills[area] = fill{kind: FillLinearStripes, spec: spec}
	return nil
}

func linearFillSpec(op string, area FillArea, angle float64, stops []ColourStop) (string, error) {
	if !area.valid() {
		return "", configErr(op, "invalid fill area %q", area)
	}
	if angle < 0 || angle > 90 {
		return "", configErr(op, "angle must be between 0 and 90, got %v", angle)
	}
	if len(stops) == 0 {
		return "", configErr(op, "at least one colour is required")
	}
	bits := []string{formatFloat(angle)}
	for _, s := range stops {
		if err := checkColour(op, s.Colour); err != nil {
			return "", err
		}
		if s.Offset < 0 || s.Offset > 1 {
			return "", configErr(op, "offset must be between 0 and 1, got %v", s.Offset)
		}
		bits = append(bits, s.Colour, formatFloat(s.Offset))
	}
	return strings.Join(bits, ","), nil
}

func (c *Chart) fillFragment() string {
	var areas []string
	for _, a := range fillAreas {
		if f, ok := c.fills[a]; ok {
			areas = append(areas, string(a)+","+string(f.kind)+","+f.spec)
		}
	}
	if len(areas) == 0 {
		return ""
	}
	return "chf=" + strings.Join(areas, "|")
}

// --- Markers, ranges and fill areas (chm) ---

// Marker is one chm entry, serialized verbatim as kind,colour,args...
type Marker struct {
	Kind   string
	Colour string
	Args   []string
}

func (m Marker) String() string {
	return strings.Join(append([]string{m.Kind, m.Colour}, m.Args...), ",")
}

// Markers returns the chart's markers in insertion order.
func (c *Chart) Markers() []Marker { return c.markers }

func (c *Chart) addMarker(op string, m Marker) error {
	if m.Kind == "" {
		return configErr(op, "marker kind is required")
	}
	if err := checkColour(op, m.Colour); err != nil {
		return err
	}
	c.markers = append(c.markers, m)
	return nil
}

// AddMarker adds a shape marker of kind (e.g. "o", "s", "x", "a") on
// dataset index at point, with the given size and drawing priority.
func (c *Chart) AddMarker(index int, point float64, kind, colour string, size float64, priority int) error {
	return c.addMarker("AddMarker", Marker{
		Kind:   kind,
		Colour: colour,
		Args:   []string{strconv.Itoa(index), formatFloat(point), formatFloat(size), strconv.Itoa(priority)},
	})
}

// AddHorizontalRange shades a horizontal band between start and stop (0-1).
func (c *Chart) AddHorizontalRange(colour string, start, stop float64) error {
	return c.addMarker("AddHorizontalRange", Marker{
		Kind: "r", Colour: colour, Args: []string{"1", formatFloat(start), formatFloat(stop)},
	})
}

// AddVerticalRange shades a vertical band between start and stop (0-1).
func (c *Chart) AddVerticalRange(colour string, start, stop float64) error {
	return c.addMarker("AddVerticalRange", Marker{
		Kind: "R", Colour: colour, Args: []string{"1", formatFloat(start), formatFloat(stop)},
	})
}

// AddFillRange fills the area between datasets start and end.
func (c *Chart) AddFillRange(colour string, start, end int) error {
	return c.addMarker("AddFillRange", Marker{
		Kind: "b", Colour: colour, Args: []string{strconv.Itoa(start), strconv.Itoa(end), "1"},
	})
}

// AddFillSimple fills the area under the first line.
func (c *Chart) AddFillSimple(colour string) error {
	return c.addMarker("AddFillSimple", Marker{
		Kind: "B", Colour: colour, Args: []string{"1", "1", "1"},
	})
}

func (c *Chart) markerFragment() string {
	bits := make([]string, len(c.markers))
	for i, m := range c.markers {
		bits[i] = m.String()
	}
	return "chm=" + strings.Join(bits, "|")
}

// --- Line styles (chls) ---

// SetLineStyle sets the thickness of dataset index's line, and a dash
// pattern when lineSegment is non-zero.
func (c *Chart) SetLineStyle(index int, thickness, lineSegment, blankSegment float64) error {
	if index < 0 {
		return configErr("SetLineStyle", "dataset index must not be negative, got %d", index)
	}
	if thickness <= 0 {
		return configErr("SetLineStyle", "thickness must be positive, got %v", thickness)
	}
	style := []string{formatFloat(thickness)}
	if lineSegment != 0 {
		style = append(style, formatFloat(lineSegment), formatFloat(blankSegment))
	}
	c.lineStyles[index] = style
	return nil
}

// lineStyleFragment emits one style per dataset up to the highest styled
// index; unstyled datasets get the default thickness 1.
func (c *Chart) lineStyleFragment() string {
	indexes := make([]int, 0, len(c.lineStyles))
	for i := range c.lineStyles {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	last := indexes[len(indexes)-1]
	styles := make([]string, last+1)
	for i := range styles {
		if s, ok := c.lineStyles[i]; ok {
			styles[i] = strings.Join(s, ",")
		} else {
			styles[i] = "1"
		}
	}
	return "chls=" + strings.Join(styles, "|")
}

// --- Grid (chg) ---

// SetGrid draws solid grid lines every xStep and yStep percent.
func (c *Chart) SetGrid(xStep, yStep float64) error {
	return c.SetDashedGrid(xStep, yStep, 1, 0)
}

// SetDashedGrid draws grid lines with a dash pattern.
func (c *Chart) SetDashedGrid(xStep, yStep, lineSegment, blankSegment float64) error {
	if xStep < 0 || yStep < 0 {
		return configErr("SetGrid", "grid steps must not be negative, got %v,%v", xStep, yStep)
	}
	c.grid = strings.Join([]string{
		formatFloat(xStep), formatFloat(yStep), formatFloat(lineSegment), formatFloat(blankSegment),
	}, ",")
	return nil
}
