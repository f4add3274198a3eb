package chart

import (
	"errors"
	"strings"
	"testing"
)

func newTestChart(t *testing.T, v Variant, w, h int, opts ...Option) *Chart {
	t.Helper()
	c, err := New(v, w, h, append([]Option{WithSink(Discard)}, opts...)...)
	if err != nil {
		t.Fatalf("New(%s) error: %v", v.Tag(), err)
	}
	return c
}

func mustURL(t *testing.T, c *Chart) string {
	t.Helper()
	u, err := c.URL()
	if err != nil {
		t.Fatalf("URL() error: %v", err)
	}
	return u
}

func TestNewValidates(t *testing.T) {
	if _, err := New(SimpleLine, 0, 100); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero width: got %v, want ErrInvalidParameters", err)
	}
	if _, err := New(nil, 100, 100); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("nil variant: got %v, want ErrInvalidParameters", err)
	}
	if _, err := New(SimpleLine, 10, 10, WithBaseURL("http://example.com/chart")); err == nil {
		t.Error("expected error for base URL without '?'")
	}
	if _, err := New(SimpleLine, 10, 10, WithColours("red")); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("bad colour option: got %v, want ErrInvalidParameters", err)
	}
}

func TestMissingValueWithExplicitRange(t *testing.T) {
	c := newTestChart(t, SimpleLine, 300, 100, WithYRange(1, 6))
	c.AddData(Dataset{1, 2, 3, Missing, 5})

	u := mustURL(t, c)
	want := "?cht=lc&chs=300x100&chd=e:AAMzZm__zM"
	if !strings.HasSuffix(u, want) {
		t.Errorf("got %q, want suffix %q", u, want)
	}
	if !strings.HasPrefix(u, DefaultBaseURL) {
		t.Errorf("got %q, want prefix %q", u, DefaultBaseURL)
	}
}

func TestInferredRangeClampsLowerToZero(t *testing.T) {
	c := newTestChart(t, SimpleLine, 300, 100)
	c.AddData(Dataset{1, 2, 3, Missing, 5})

	_, _, y, ok := c.ScalingRanges()
	if !ok || y != (Range{0, 5}) {
		t.Fatalf("y range: got %v (ok=%v), want [0, 5]", y, ok)
	}
	u := mustURL(t, c)
	if !strings.HasSuffix(u, "chd=e:MzZmmZ__..") {
		t.Errorf("got %q, want data chd=e:MzZmmZ__..", u)
	}
}

func TestInferredRangeKeepsNegativeLower(t *testing.T) {
	c := newTestChart(t, SimpleLine, 100, 50)
	c.AddData(Dataset{-2, 4})
	c.AddData(Dataset{Missing, 8})

	r, ok := c.DataYRange()
	if !ok || r != (Range{-2, 8}) {
		t.Errorf("DataYRange: got %v (ok=%v), want [-2, 8]", r, ok)
	}
	if _, ok := c.DataXRange(); ok {
		t.Error("DataXRange: expected no x data for a line chart")
	}
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		v    Variant
		h    int
		want Encoding
	}{
		{SimpleLine, 100, Extended},
		{SimpleLine, 99, Simple},
		{GroupedVerticalBar, 200, Extended},
		{Scatter, 150, Extended},
		{Pie2D, 300, Simple},
		{Venn, 300, Simple},
	}
	for _, tt := range tests {
		c := newTestChart(t, tt.v, 100, tt.h)
		if got := c.DetectEncoding(); got != tt.want {
			t.Errorf("%s %dpx: got %s, want %s", tt.v.Tag(), tt.h, got.Name(), tt.want.Name())
		}
	}

	c := newTestChart(t, SimpleLine, 100, 200, WithEncoding(Text))
	if got := c.DetectEncoding(); got != Text {
		t.Errorf("forced encoding: got %s, want text", got.Name())
	}
}

func TestURLWithEncodingOverride(t *testing.T) {
	c := newTestChart(t, SimpleLine, 200, 200, WithYRange(0, 10))
	c.AddData(Dataset{0, 5, 10})

	u, err := c.URLWithEncoding(Text)
	if err != nil {
		t.Fatalf("URLWithEncoding() error: %v", err)
	}
	if !strings.HasSuffix(u, "chd=t:0.0,50.0,100.0") {
		t.Errorf("got %q", u)
	}
	u, err = c.URLWithEncoding(Simple)
	if err != nil {
		t.Fatalf("URLWithEncoding() error: %v", err)
	}
	if !strings.HasSuffix(u, "chd=s:Af9") {
		t.Errorf("got %q", u)
	}
}

func TestAutoScaleOff(t *testing.T) {
	c := newTestChart(t, SimpleLine, 100, 50, WithAutoScale(false))
	c.AddData(Dataset{0, 10, 61})
	if u := mustURL(t, c); !strings.HasSuffix(u, "chd=s:AK9") {
		t.Errorf("got %q, want raw data AK9", u)
	}

	c.AddData(Dataset{62})
	if _, err := c.URL(); !errors.Is(err, ErrDataOutOfRange) {
		t.Errorf("got %v, want ErrDataOutOfRange", err)
	}
}

func TestClipEventsReported(t *testing.T) {
	rec := &Recorder{}
	c, err := New(SimpleLine, 100, 50, WithYRange(0, 10), WithSink(rec))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c.AddData(Dataset{-5, 5, 20})

	if u := mustURL(t, c); !strings.HasSuffix(u, "chd=s:Af9") {
		t.Errorf("got %q, want clipped data Af9", u)
	}
	if n := rec.Count(EventClipped); n != 2 {
		t.Fatalf("clip events: got %d, want 2", n)
	}
	ev := rec.Events()[1]
	if ev.Index != 2 || ev.Value != 20 || ev.Result != 61 || ev.Encoding != "simple" {
		t.Errorf("got event %+v", ev)
	}
}

func TestXYLineRoles(t *testing.T) {
	c := newTestChart(t, XYLine, 100, 50)
	c.AddData(Dataset{0, 10})
	c.AddData(Dataset{0, 100})
	c.AddData(Dataset{5, 20})
	c.AddData(Dataset{50, 50})

	roles := []Role{RoleX, RoleY, RoleX, RoleY}
	for i, a := range c.Annotated() {
		if a.Role != roles[i] || a.Index != i {
			t.Errorf("dataset %d: got role %s index %d", i, a.Role, a.Index)
		}
	}
	x, okX, y, okY := c.ScalingRanges()
	if !okX || x != (Range{0, 20}) {
		t.Errorf("x range: got %v", x)
	}
	if !okY || y != (Range{0, 100}) {
		t.Errorf("y range: got %v", y)
	}
}

func TestScatterMarkerSizes(t *testing.T) {
	c := newTestChart(t, Scatter, 100, 50)
	c.AddData(Dataset{1, 2})
	c.AddData(Dataset{3, 4})
	c.AddData(Dataset{5, 10})
	c.AddData(Dataset{99})

	annotated := c.Annotated()
	if len(annotated) != 3 || annotated[2].Role != RoleMarkerSize {
		t.Fatalf("got %+v, want x, y, marker-size", annotated)
	}
	scaled, err := c.ScaledData(Simple)
	if err != nil {
		t.Fatalf("ScaledData() error: %v", err)
	}
	if scaled[2][0] != 31 || scaled[2][1] != 61 {
		t.Errorf("marker sizes: got %v, want [31 61]", scaled[2])
	}
}

func TestHorizontalBarUsesXRange(t *testing.T) {
	c := newTestChart(t, StackedHorizontalBar, 100, 50, WithXRange(0, 61))
	c.AddData(Dataset{0, 61})
	if _, ok := c.DataYRange(); ok {
		t.Error("expected no y data for a horizontal bar chart")
	}
	if u := mustURL(t, c); !strings.Contains(u, "chd=s:A9") {
		t.Errorf("got %q", u)
	}
}

func TestURLFragmentOrder(t *testing.T) {
	c := newTestChart(t, SimpleLine, 200, 50,
		WithTitle("Sales 2024"),
		WithLegend("a b", "c"),
		WithColours("ff0000", "00FF0080"),
		WithYRange(0, 61),
	)
	c.AddData(Dataset{0, 61})
	c.AddData(Dataset{1})
	if err := c.SetTitleStyle("", 20); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLegendPosition("b"); err != nil {
		t.Fatal(err)
	}
	if err := c.FillSolid(FillBackground, "efefef"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SetAxisRange(AxisLeft, 0, 100); err != nil {
		t.Fatal(err)
	}
	if err := c.AddMarker(0, 1, "o", "0000ff", 5, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLineStyle(1, 2, 4, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.SetGrid(10, 20); err != nil {
		t.Fatal(err)
	}

	want := DefaultBaseURL + strings.Join([]string{
		"cht=lc",
		"chs=200x50",
		"chd=s:A9,B",
		"chtt=Sales%202024",
		"chts=333333,20",
		"chdl=a%20b|c",
		"chdlp=b",
		"chco=ff0000,00FF0080",
		"chf=bg,s,efefef",
		"chxt=y",
		"chxr=0,0,100",
		"chm=o,0000ff,0,1,5,0",
		"chls=1|2,4,2",
		"chg=10,20,1,0",
	}, "&")
	if got := mustURL(t, c); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestTitleStyleDefaults(t *testing.T) {
	c := newTestChart(t, SimpleLine, 10, 10)
	if err := c.SetTitleStyle("ff0000", 0); err != nil {
		t.Fatal(err)
	}
	colour, size := c.TitleStyle()
	if colour != "ff0000" || size != 13.5 {
		t.Errorf("got %q %v, want ff0000 13.5", colour, size)
	}
	if err := c.SetTitleStyle("", 0); err != nil {
		t.Fatal(err)
	}
	if colour, _ := c.TitleStyle(); colour != "" {
		t.Errorf("expected cleared style, got %q", colour)
	}
}

func TestColourValidation(t *testing.T) {
	c := newTestChart(t, SimpleLine, 10, 10)
	for _, bad := range []string{"fff", "gg0000", "ff00001", "#ff0000"} {
		err := c.SetColours([]string{bad})
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("SetColours(%q): got %v, want *ConfigError", bad, err)
		}
	}
	if err := c.SetColours([]string{"AABBCC", "aabbccdd"}); err != nil {
		t.Errorf("valid colours: %v", err)
	}
}

func TestAddDataCopies(t *testing.T) {
	c := newTestChart(t, SimpleLine, 10, 10)
	ds := Dataset{1, 2}
	if idx := c.AddData(ds); idx != 0 {
		t.Errorf("index: got %d, want 0", idx)
	}
	ds[0] = 99
	if c.Data()[0][0] != 1 {
		t.Error("AddData kept a reference to the caller's slice")
	}
	if idx := c.AddData(Dataset{3}); idx != 1 {
		t.Errorf("index: got %d, want 1", idx)
	}
}

func TestScatterDropsExtraDatasets(t *testing.T) {
	for _, autoScale := range []bool{true, false} {
		c := newTestChart(t, Scatter, 100, 100, WithAutoScale(autoScale), WithEncoding(Simple))
		for _, v := range []float64{1, 2, 3, 4} {
			c.AddData(Dataset{v, v + 1})
		}
		u := mustURL(t, c)
		data := u[strings.Index(u, "chd=s:")+len("chd=s:"):]
		if i := strings.IndexByte(data, '&'); i >= 0 {
			data = data[:i]
		}
		if n := len(strings.Split(data, ",")); n != 3 {
			t.Errorf("auto scale %v: got %d data groups in %q, want 3", autoScale, n, u)
		}
	}
}

func TestNewWithoutLoggerOrSink(t *testing.T) {
	c, err := New(SimpleLine, 100, 100, WithYRange(0, 1), WithEncoding(Simple))
	if err != nil {
		t.Fatal(err)
	}
	c.AddData(Dataset{5})
	if u := mustURL(t, c); !strings.HasSuffix(u, "chd=s:9") {
		t.Errorf("got %q, want clipped value 9", u)
	}
}
