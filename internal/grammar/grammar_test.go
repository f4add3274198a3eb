package grammar

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/gak/gochartapi/pkg/chart"
)

func testBuilder(buf *bytes.Buffer) *Builder {
	return &Builder{
		Width:   200,
		Height:  100,
		Options: []chart.Option{chart.WithSink(chart.Discard)},
		Logger:  bolt.New(bolt.NewJSONHandler(buf)).SetLevel(bolt.WARN),
	}
}

func TestGoogleOMeterDefinition(t *testing.T) {
	def, err := Parse([]byte(`
type: GoogleOMeter
w: 100
h: 100
auto_scale: true
x_range: [0, 10]
data:
  - [1, 5, 10]
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	var logs bytes.Buffer
	c, err := testBuilder(&logs).Build(def)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if c.Variant() != chart.GoogleOMeter {
		t.Errorf("variant: got %s", c.Variant().Tag())
	}
	if _, err := c.URL(); err != nil {
		t.Errorf("URL() error: %v", err)
	}
}

func TestBuildMatchesBuilderAPI(t *testing.T) {
	def, err := Parse([]byte(`
type: GroupedVerticalBar
w: 300
h: 150
y_range: [0, 20]
data:
  - [1, 2, 3]
  - [4, null, 6]
title: Monthly totals
legend: [north, south]
colours: [ff0000, 00ff00]
bar_width: 5
bar_spacing: 2
group_spacing: 4
`))
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	got, err := testBuilder(&logs).Build(def)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want, err := chart.New(chart.GroupedVerticalBar, 300, 150,
		chart.WithSink(chart.Discard),
		chart.WithYRange(0, 20),
		chart.WithTitle("Monthly totals"),
		chart.WithLegend("north", "south"),
		chart.WithColours("ff0000", "00ff00"),
	)
	if err != nil {
		t.Fatal(err)
	}
	want.AddData(chart.Dataset{1, 2, 3})
	want.AddData(chart.Dataset{4, chart.Missing, 6})
	want.SetBarWidth(5)
	want.SetBarSpacing(2)
	want.SetGroupSpacing(4)

	gotURL, err := got.URL()
	if err != nil {
		t.Fatal(err)
	}
	wantURL, _ := want.URL()
	if gotURL != wantURL {
		t.Errorf("got  %q\nwant %q", gotURL, wantURL)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected warnings: %s", logs.String())
	}
}

func TestJSONDefinition(t *testing.T) {
	def, err := Parse([]byte(`{"type": "QR", "w": 100, "h": 150, "text": "Hello World"}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	var logs bytes.Buffer
	c, err := testBuilder(&logs).Build(def)
	if err != nil {
		t.Fatal(err)
	}
	u, err := c.URL()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(u, "?cht=qr&chs=100x150&chl=Hello%20World") {
		t.Errorf("got %q", u)
	}
}

func TestMapDefinitionAndDefaultSize(t *testing.T) {
	def, err := Parse([]byte("type: Map\ngeo_area: asia\ncodes: [JP, CN]\ndata: [[1, 2]]\n"))
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	c, err := testBuilder(&logs).Build(def)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := c.Size(); w != 200 || h != 100 {
		t.Errorf("size: got %dx%d, want builder default 200x100", w, h)
	}
	u, _ := c.URL()
	if !strings.HasSuffix(u, "&chtm=asia&chld=JPCN") {
		t.Errorf("got %q", u)
	}
}

func TestUnknownKeysWarn(t *testing.T) {
	def, err := Parse([]byte("type: SimpleLine\nw: 10\nh: 10\ncolor: red\ndata: [[1]]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Unknown) != 1 || def.Unknown[0] != "color" {
		t.Fatalf("Unknown: got %v", def.Unknown)
	}
	var logs bytes.Buffer
	if _, err := testBuilder(&logs).Build(def); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "unknown chart definition key ignored") || !strings.Contains(out, `"key":"color"`) {
		t.Errorf("log output: %q", out)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown type", "type: Donut\nw: 10\nh: 10\n", chart.ErrUnknownChartType},
		{"bad encoding", "type: SimpleLine\nencoding: morse\n", chart.ErrUnknownEncoding},
		{"bad colour", "type: SimpleLine\ncolours: [red]\n", chart.ErrInvalidParameters},
		{"group spacing alone", "type: GroupedVerticalBar\ngroup_spacing: 3\n", chart.ErrInvalidParameters},
		{"labels on line", "type: SimpleLine\nlabels: [a]\n", chart.ErrInvalidParameters},
		{"one-value range", "type: SimpleLine\nx_range: [1]\n", chart.ErrInvalidParameters},
		{"three-value range", "type: SimpleLine\ny_range: [0, 1, 2]\n", chart.ErrInvalidParameters},
	}
	for _, tt := range tests {
		def, err := Parse([]byte(tt.src))
		if err != nil {
			t.Fatalf("%s: Parse() error: %v", tt.name, err)
		}
		var logs bytes.Buffer
		if _, err := testBuilder(&logs).Build(def); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseRejectsNonMapping(t *testing.T) {
	if _, err := Parse([]byte("- 1\n- 2\n")); err == nil {
		t.Error("expected error for a sequence document")
	}
	if _, err := Parse([]byte("type: [unclosed\n")); err == nil {
		t.Error("expected YAML syntax error")
	}
}

func TestParseDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.yaml")
	src := `
charts:
  sales:
    type: SimpleLine
    data: [[1, 2, 3]]
  share:
    type: Pie2D
    labels: [a, b]
    data: [[30, 70]]
  signup:
    type: QR
    text: https://example.com
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	charts, err := ParseDocumentFile(path)
	if err != nil {
		t.Fatalf("ParseDocumentFile() error: %v", err)
	}
	names := []string{"sales", "share", "signup"}
	if len(charts) != len(names) {
		t.Fatalf("got %d charts, want %d", len(charts), len(names))
	}
	for i, n := range charts {
		if n.Name != names[i] {
			t.Errorf("chart %d: got %q, want %q", i, n.Name, names[i])
		}
	}
	if charts[1].Definition.Type != "Pie2D" || len(charts[1].Definition.Labels) != 2 {
		t.Errorf("share: got %+v", charts[1].Definition)
	}
}

func TestParseDocumentErrors(t *testing.T) {
	for name, src := range map[string]string{
		"no charts":  "other: 1\n",
		"not a map":  "charts: [1, 2]\n",
		"duplicate":  "charts:\n  a: {type: QR}\n  a: {type: QR}\n",
		"bad entry":  "charts:\n  a: [1]\n",
		"sequence":   "- charts\n",
	} {
		if _, err := ParseDocument([]byte(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestBuilderLoggerReceivesClipEvents(t *testing.T) {
	var buf bytes.Buffer
	b := &Builder{
		Width:  200,
		Height: 100,
		Logger: bolt.New(bolt.NewJSONHandler(&buf)).SetLevel(bolt.WARN),
	}
	def, err := Parse([]byte("type: SimpleLine\ny_range: [0, 1]\ndata: [[5]]\n"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Build(def)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.URL(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"event":"clipped"`)) {
		t.Errorf("clip event not logged through the builder's logger: %s", buf.String())
	}
}
