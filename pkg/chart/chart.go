// Package chart builds chart-rendering URLs for the Google Chart API.
//
// A Chart is created for one Variant (line, bar, pie, ...), fed datasets and
// styling calls, and then asked for its URL. The variant decides which
// datasets are x, y or marker-size data; the chart infers scaling ranges,
// scales through one of the three encodings (Simple, Text, Extended) and
// joins every URL fragment in the order the service expects.
//
// Setters validate eagerly and return errors; URL only fails for conditions
// that depend on the data as a whole.
package chart

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
)

// DefaultBaseURL is the chart service endpoint.
const DefaultBaseURL = "http://chart.apis.google.com/chart?"

// discardLogger is used when no logger is given.
var discardLogger = bolt.New(bolt.NewJSONHandler(io.Discard))

var colourRe = regexp.MustCompile(`^([A-Fa-f0-9]{2}){3,4}$`)

func checkColour(op, colour string) error {
	if !colourRe.MatchString(colour) {
		return configErr(op, "colours need to be in RRGGBB or RRGGBBAA format, got %q", colour)
	}
	return nil
}

// Chart is a chart description. It is not safe for concurrent mutation.
type Chart struct {
	variant Variant
	width   int
	height  int
	baseURL string

	title          string
	titleColour    string
	titleFontSize  float64
	titleStyled    bool
	legend         []string
	legendPosition string
	colours        []string

	autoScale bool
	xRange    *Range
	yRange    *Range
	encoding  Encoding // nil selects by chart family and height

	data       []Dataset
	axes       []*Axis
	markers    []Marker
	lineStyles map[int][]string
	grid       string
	fills      map[FillArea]fill

	sink   Sink
	logger *bolt.Logger

	bar       barOptions
	pieLabels []string
	geoArea   string
	codes     []string
	qr        qrOptions
}

// Option configures a Chart at construction.
type Option func(*Chart) error

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(c *Chart) error { c.SetTitle(title); return nil }
}

// WithLegend sets one legend entry per dataset.
func WithLegend(legend ...string) Option {
	return func(c *Chart) error { c.SetLegend(legend); return nil }
}

// WithColours sets the dataset colours.
func WithColours(colours ...string) Option {
	return func(c *Chart) error { return c.SetColours(colours) }
}

// WithAutoScale turns automatic scaling on or off. It is on by default.
func WithAutoScale(on bool) Option {
	return func(c *Chart) error { c.autoScale = on; return nil }
}

// WithXRange fixes the x scaling range instead of inferring it.
func WithXRange(lower, upper float64) Option {
	return func(c *Chart) error { c.SetXRange(lower, upper); return nil }
}

// WithYRange fixes the y scaling range instead of inferring it.
func WithYRange(lower, upper float64) Option {
	return func(c *Chart) error { c.SetYRange(lower, upper); return nil }
}

// WithEncoding forces a data encoding.
func WithEncoding(enc Encoding) Option {
	return func(c *Chart) error { c.encoding = enc; return nil }
}

// WithBaseURL overrides the service endpoint. It must end with '?'.
func WithBaseURL(base string) Option {
	return func(c *Chart) error {
		if !strings.HasSuffix(base, "?") {
			return configErr("WithBaseURL", "base URL %q must end with '?'", base)
		}
		c.baseURL = base
		return nil
	}
}

// WithSink sets where clip events are reported.
func WithSink(s Sink) Option {
	return func(c *Chart) error { c.sink = s; return nil }
}

// WithLogger sets the logger used for download progress and, unless
// WithSink is given, for clip events. Without it nothing is logged.
func WithLogger(l *bolt.Logger) Option {
	return func(c *Chart) error { c.logger = l; return nil }
}

// New creates a chart of the given kind and pixel size.
func New(v Variant, width, height int, opts ...Option) (*Chart, error) {
	if v == nil {
		return nil, configErr("New", "nil chart variant")
	}
	if width <= 0 || height <= 0 {
		return nil, configErr("New", "width and height must be positive, got %dx%d", width, height)
	}
	c := &Chart{
		variant:    v,
		width:      width,
		height:     height,
		baseURL:    DefaultBaseURL,
		autoScale:  true,
		lineStyles: make(map[int][]string),
		fills:      make(map[FillArea]fill, len(fillAreas)),
		geoArea:    "world",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = discardLogger
	}
	if c.sink == nil {
		c.sink = LogSink{Logger: c.logger}
	}
	return c, nil
}

// Variant returns the chart kind.
func (c *Chart) Variant() Variant { return c.variant }

// Size returns the chart dimensions in pixels.
func (c *Chart) Size() (width, height int) { return c.width, c.height }

// --- Simple settings ---

// SetTitle sets the title; an empty string removes it.
func (c *Chart) SetTitle(title string) {
	if title == "" {
		c.title = ""
		return
	}
	c.title = quote(title)
}

// SetTitleStyle sets the title colour and font size. An empty colour or a
// zero size takes the service default (333333, 13.5) when the other is set;
// both empty clears the style.
func (c *Chart) SetTitleStyle(colour string, fontSize float64) error {
	if colour == "" && fontSize == 0 {
		c.titleColour, c.titleFontSize, c.titleStyled = "", 0, false
		return nil
	}
	if colour == "" {
		colour = "333333"
	}
	if fontSize == 0 {
		fontSize = 13.5
	}
	if err := checkColour("SetTitleStyle", colour); err != nil {
		return err
	}
	if fontSize < 0 {
		return configErr("SetTitleStyle", "font size must be positive, got %v", fontSize)
	}
	c.titleColour, c.titleFontSize, c.titleStyled = colour, fontSize, true
	return nil
}

// TitleStyle returns the title colour and font size, empty when unset.
func (c *Chart) TitleStyle() (colour string, fontSize float64) {
	return c.titleColour, c.titleFontSize
}

// SetLegend sets one legend entry per dataset; nil removes the legend.
func (c *Chart) SetLegend(legend []string) {
	if len(legend) == 0 {
		c.legend = nil
		return
	}
	c.legend = make([]string, len(legend))
	for i, l := range legend {
		c.legend[i] = quote(l)
	}
}

// SetLegendPosition places the legend: "b", "t", "r" or "l".
func (c *Chart) SetLegendPosition(pos string) error {
	switch pos {
	case "b", "t", "r", "l", "":
		c.legendPosition = pos
		return nil
	}
	return configErr("SetLegendPosition", "invalid legend position %q", pos)
}

// SetColours sets the dataset colours; nil removes them.
func (c *Chart) SetColours(colours []string) error {
	for _, col := range colours {
		if err := checkColour("SetColours", col); err != nil {
			return err
		}
	}
	if len(colours) == 0 {
		c.colours = nil
		return nil
	}
	c.colours = append([]string(nil), colours...)
	return nil
}

// SetAutoScale turns automatic scaling on or off.
func (c *Chart) SetAutoScale(on bool) { c.autoScale = on }

// SetXRange fixes the x scaling range.
func (c *Chart) SetXRange(lower, upper float64) { c.xRange = &Range{Lower: lower, Upper: upper} }

// SetYRange fixes the y scaling range.
func (c *Chart) SetYRange(lower, upper float64) { c.yRange = &Range{Lower: lower, Upper: upper} }

// SetEncoding forces a data encoding; nil restores automatic selection.
func (c *Chart) SetEncoding(enc Encoding) { c.encoding = enc }

// --- Data ---

// AddData appends a dataset and returns its index.
func (c *Chart) AddData(ds Dataset) int {
	c.data = append(c.data, append(Dataset(nil), ds...))
	return len(c.data) - 1
}

// Data returns the raw datasets.
func (c *Chart) Data() []Dataset { return c.data }

// Annotated returns the datasets tagged by the chart's variant.
func (c *Chart) Annotated() []Annotated { return c.variant.Annotate(c.data) }

// DetectEncoding returns the encoding URL uses when none is forced: Extended
// for line, bar and scatter charts at least 100px high, Simple otherwise.
func (c *Chart) DetectEncoding() Encoding {
	if c.encoding != nil {
		return c.encoding
	}
	switch c.variant.family() {
	case familyLine, familyBar, familyScatter:
		if c.height >= 100 {
			return Extended
		}
	}
	return Simple
}

// DataXRange returns the min and max over every x dataset, ignoring
// missing values. ok is false when there is no such value.
func (c *Chart) DataXRange() (r Range, ok bool) { return c.dataRange(RoleX) }

// DataYRange is DataXRange for y datasets.
func (c *Chart) DataYRange() (r Range, ok bool) { return c.dataRange(RoleY) }

func (c *Chart) dataRange(role Role) (Range, bool) {
	r := Range{Lower: math.Inf(1), Upper: math.Inf(-1)}
	ok := false
	for _, a := range c.Annotated() {
		if a.Role != role {
			continue
		}
		for _, v := range a.Data {
			if IsMissing(v) {
				continue
			}
			r.Lower = math.Min(r.Lower, v)
			r.Upper = math.Max(r.Upper, v)
			ok = true
		}
	}
	if !ok {
		return Range{}, false
	}
	return r, true
}

// ScalingRanges returns the x and y ranges URL scales against: the explicit
// ranges if set, otherwise the data ranges with a positive lower bound
// pulled down to zero.
func (c *Chart) ScalingRanges() (x Range, okX bool, y Range, okY bool) {
	x, okX = c.scalingRange(c.xRange, RoleX)
	y, okY = c.scalingRange(c.yRange, RoleY)
	return x, okX, y, okY
}

func (c *Chart) scalingRange(explicit *Range, role Role) (Range, bool) {
	if explicit != nil {
		return *explicit, true
	}
	r, ok := c.dataRange(role)
	if ok && r.Lower > 0 {
		r.Lower = 0
	}
	return r, ok
}

// ScaledData scales the annotated datasets for enc. Clipped values are
// reported to the chart's sink.
func (c *Chart) ScaledData(enc Encoding) ([]Dataset, error) {
	xr, okX, yr, okY := c.ScalingRanges()
	annotated := c.Annotated()
	out := make([]Dataset, 0, len(annotated))
	for _, a := range annotated {
		var r Range
		var ok bool
		switch a.Role {
		case RoleX:
			r, ok = xr, okX
		case RoleY:
			r, ok = yr, okY
		case RoleMarkerSize:
			r, ok = markerSizeRange(a.Data)
		}
		scaled := make(Dataset, len(a.Data))
		for i, v := range a.Data {
			if IsMissing(v) || !ok {
				scaled[i] = Missing
				continue
			}
			s, err := enc.ScaleValue(v, r)
			if err != nil {
				return nil, fmt.Errorf("dataset %d: %w", a.Index, err)
			}
			if s.Clipped {
				c.sink.Report(Event{
					Kind:     EventClipped,
					Encoding: enc.Name(),
					Dataset:  a.Index,
					Index:    i,
					Value:    v,
					Scaled:   s.Unclipped,
					Result:   s.Value,
				})
			}
			scaled[i] = s.Value
		}
		out = append(out, scaled)
	}
	return out, nil
}

// markerSizeRange scales marker sizes relative to the largest one.
func markerSizeRange(ds Dataset) (Range, bool) {
	hi, ok := math.Inf(-1), false
	for _, v := range ds {
		if !IsMissing(v) {
			hi, ok = math.Max(hi, v), true
		}
	}
	return Range{Lower: 0, Upper: hi}, ok
}

func (c *Chart) dataFragment(enc Encoding) (string, error) {
	if c.variant.family() == familyQR {
		return c.qrDataFragment()
	}
	if enc == nil {
		enc = c.DetectEncoding()
	}
	if c.autoScale {
		data, err := c.ScaledData(enc)
		if err != nil {
			return "", err
		}
		return enc.Encode(data)
	}
	// Unscaled data still passes through the variant, which may drop datasets.
	annotated := c.Annotated()
	data := make([]Dataset, len(annotated))
	for i, a := range annotated {
		data[i] = a.Data
	}
	return enc.Encode(data)
}

// --- URL generation ---

// URL returns the complete chart URL.
func (c *Chart) URL() (string, error) {
	return c.URLWithEncoding(nil)
}

// URLWithEncoding returns the chart URL using enc, or the detected
// encoding when enc is nil.
func (c *Chart) URLWithEncoding(enc Encoding) (string, error) {
	bits, err := c.Fragments(enc)
	if err != nil {
		return "", err
	}
	return c.baseURL + strings.Join(bits, "&"), nil
}

// Fragments returns the query fragments in service order: type, size,
// data, title, legend, colours, fill, axes, markers, line styles, grid,
// then the fragments specific to the chart kind.
func (c *Chart) Fragments(enc Encoding) ([]string, error) {
	data, err := c.dataFragment(enc)
	if err != nil {
		return nil, err
	}
	bits := []string{
		"cht=" + c.variant.TypeCode(),
		"chs=" + strconv.Itoa(c.width) + "x" + strconv.Itoa(c.height),
		data,
	}
	if c.title != "" {
		bits = append(bits, "chtt="+c.title)
	}
	if c.titleStyled {
		bits = append(bits, "chts="+c.titleColour+","+formatFloat(c.titleFontSize))
	}
	if len(c.legend) > 0 {
		bits = append(bits, "chdl="+strings.Join(c.legend, "|"))
	}
	if c.legendPosition != "" {
		bits = append(bits, "chdlp="+c.legendPosition)
	}
	if len(c.colours) > 0 {
		bits = append(bits, "chco="+strings.Join(c.colours, ","))
	}
	if f := c.fillFragment(); f != "" {
		bits = append(bits, f)
	}
	if f := c.axisFragment(); f != "" {
		bits = append(bits, f)
	}
	if len(c.markers) > 0 {
		bits = append(bits, c.markerFragment())
	}
	if len(c.lineStyles) > 0 {
		bits = append(bits, c.lineStyleFragment())
	}
	if c.grid != "" {
		bits = append(bits, "chg="+c.grid)
	}
	return append(bits, c.variantFragments()...), nil
}

func (c *Chart) variantFragments() []string {
	switch c.variant.family() {
	case familyBar:
		return c.barFragments()
	case familyPie:
		if len(c.pieLabels) > 0 {
			return []string{"chl=" + strings.Join(c.pieLabels, "|")}
		}
	case familyMap:
		return c.mapFragments()
	case familyQR:
		return c.qrFragments()
	}
	return nil
}
