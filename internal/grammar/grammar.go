// Package grammar builds charts from declarative YAML or JSON definitions.
//
// A definition is a mapping such as:
//
//	type: GoogleOMeter
//	w: 100
//	h: 100
//	x_range: [0, 10]
//	data:
//	  - [1, 5, 10]
//
// JSON documents are accepted as well, since JSON is valid YAML. Unknown
// keys are logged and skipped.
package grammar

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/bolt/v3"
	"gopkg.in/yaml.v3"

	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// Definition is one declarative chart.
type Definition struct {
	Type         string       `yaml:"type"`
	W            int          `yaml:"w"`
	H            int          `yaml:"h"`
	AutoScale    *bool        `yaml:"auto_scale"`
	XRange       []float64    `yaml:"x_range"`
	YRange       []float64    `yaml:"y_range"`
	Data         [][]*float64 `yaml:"data"` // null entries are missing values
	Encoding     string       `yaml:"encoding"`
	Title        string       `yaml:"title"`
	Legend       []string     `yaml:"legend"`
	Colours      []string     `yaml:"colours"`
	Labels       []string     `yaml:"labels"`
	Text         string       `yaml:"text"`
	Codes        []string     `yaml:"codes"`
	GeoArea      string       `yaml:"geo_area"`
	BarWidth     *int         `yaml:"bar_width"`
	BarSpacing   *int         `yaml:"bar_spacing"`
	GroupSpacing *int         `yaml:"group_spacing"`

	// Unknown lists keys that were present but not understood.
	Unknown []string `yaml:"-"`
}

var knownKeys = map[string]bool{
	"type": true, "w": true, "h": true, "auto_scale": true, "x_range": true,
	"y_range": true, "data": true, "encoding": true, "title": true,
	"legend": true, "colours": true, "labels": true, "text": true,
	"codes": true, "geo_area": true, "bar_width": true, "bar_spacing": true,
	"group_spacing": true,
}

// Parse decodes a single definition.
func Parse(data []byte) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("grammar: parse: %w", err)
	}
	return decodeDefinition(&doc)
}

// ParseFile decodes a single definition from path.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}
	return Parse(data)
}

func decodeDefinition(n *yaml.Node) (*Definition, error) {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("grammar: line %d: chart definition must be a mapping", n.Line)
	}
	var def Definition
	if err := n.Decode(&def); err != nil {
		return nil, fmt.Errorf("grammar: decode: %w", err)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if key := n.Content[i].Value; !knownKeys[key] {
			def.Unknown = append(def.Unknown, key)
		}
	}
	return &def, nil
}

// Builder turns definitions into charts.
type Builder struct {
	// Registry resolves the type key. Defaults to chart.Global().
	Registry *chart.Registry
	// Width and Height apply when a definition omits w or h.
	Width, Height int
	// Options are applied to every chart before the definition's settings.
	Options []chart.Option
	Logger  *bolt.Logger
}

func (b *Builder) registry() *chart.Registry {
	if b.Registry == nil {
		return chart.Global()
	}
	return b.Registry
}

func (b *Builder) logger() *bolt.Logger {
	if b.Logger == nil {
		return logging.Get()
	}
	return b.Logger
}

// Build creates the chart described by def.
func (b *Builder) Build(def *Definition) (*chart.Chart, error) {
	for _, key := range def.Unknown {
		logging.With(b.logger().Warn(), logging.Component("grammar"),
			logging.ChartType(def.Type), logging.Str("key", key)).Msg("unknown chart definition key ignored")
	}

	v, err := b.registry().Lookup(def.Type)
	if err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}
	w, h := def.W, def.H
	if w == 0 {
		w = b.Width
	}
	if h == 0 {
		h = b.Height
	}

	// The builder's logger is the default; Options may still override it.
	opts := append([]chart.Option{chart.WithLogger(b.logger())}, b.Options...)
	if def.AutoScale != nil {
		opts = append(opts, chart.WithAutoScale(*def.AutoScale))
	}
	if def.XRange != nil {
		lo, hi, err := rangeBounds("x_range", def.XRange)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chart.WithXRange(lo, hi))
	}
	if def.YRange != nil {
		lo, hi, err := rangeBounds("y_range", def.YRange)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chart.WithYRange(lo, hi))
	}
	if def.Encoding != "" {
		enc, err := chart.EncodingByName(def.Encoding)
		if err != nil {
			return nil, fmt.Errorf("grammar: %w", err)
		}
		opts = append(opts, chart.WithEncoding(enc))
	}
	if def.Title != "" {
		opts = append(opts, chart.WithTitle(def.Title))
	}
	if len(def.Legend) > 0 {
		opts = append(opts, chart.WithLegend(def.Legend...))
	}
	if len(def.Colours) > 0 {
		opts = append(opts, chart.WithColours(def.Colours...))
	}

	c, err := chart.New(v, w, h, opts...)
	if err != nil {
		return nil, fmt.Errorf("grammar: %s: %w", def.Type, err)
	}
	if err := apply(c, def); err != nil {
		return nil, fmt.Errorf("grammar: %s: %w", def.Type, err)
	}
	return c, nil
}

// apply sets data and the kind-specific keys, in the order their setters
// depend on each other.
func apply(c *chart.Chart, def *Definition) error {
	if def.Text != "" {
		if err := c.AddText(def.Text); err != nil {
			return err
		}
	}
	for _, row := range def.Data {
		ds := make(chart.Dataset, len(row))
		for i, v := range row {
			if v == nil {
				ds[i] = chart.Missing
			} else {
				ds[i] = *v
			}
		}
		c.AddData(ds)
	}
	steps := []struct {
		set bool
		fn  func() error
	}{
		{len(def.Labels) > 0, func() error { return c.SetPieLabels(def.Labels) }},
		{len(def.Codes) > 0, func() error { return c.SetCodes(def.Codes) }},
		{def.GeoArea != "", func() error { return c.SetGeoArea(def.GeoArea) }},
		{def.BarWidth != nil, func() error { return c.SetBarWidth(*def.BarWidth) }},
		{def.BarSpacing != nil, func() error { return c.SetBarSpacing(*def.BarSpacing) }},
		{def.GroupSpacing != nil, func() error { return c.SetGroupSpacing(*def.GroupSpacing) }},
	}
	for _, s := range steps {
		if !s.set {
			continue
		}
		if err := s.fn(); err != nil {
			return err
		}
	}
	return nil
}

func rangeBounds(key string, r []float64) (float64, float64, error) {
	if len(r) != 2 {
		return 0, 0, fmt.Errorf("grammar: %s needs [lower, upper], got %d values: %w", key, len(r), chart.ErrInvalidParameters)
	}
	return r[0], r[1], nil
}

// Build creates a chart from a definition with a default Builder.
func Build(def *Definition) (*chart.Chart, error) {
	return (&Builder{}).Build(def)
}
