package chart

import (
	"sort"
	"strconv"
	"strings"
)

// --- Bar charts ---

type barOptions struct {
	width        int
	spacing      int
	groupSpacing int
	hasWidth     bool
	hasSpacing   bool
	hasGroup     bool
	zeroLines    map[int]float64
}

func (c *Chart) requireFamily(op string, f family) error {
	if c.variant.family() != f {
		return configErr(op, "not supported by %s charts", c.variant.Tag())
	}
	return nil
}

// SetBarWidth sets the bar width in pixels.
func (c *Chart) SetBarWidth(width int) error {
	if err := c.requireFamily("SetBarWidth", familyBar); err != nil {
		return err
	}
	if width < 0 {
		return configErr("SetBarWidth", "bar width must not be negative, got %d", width)
	}
	c.bar.width, c.bar.hasWidth = width, true
	return nil
}

// SetBarSpacing sets the space between bars in a group. Grouped bar charts
// only; the bar width must already be set.
func (c *Chart) SetBarSpacing(spacing int) error {
	if err := c.requireFamily("SetBarSpacing", familyBar); err != nil {
		return err
	}
	if !c.variant.grouped() {
		return configErr("SetBarSpacing", "bar spacing needs a grouped bar chart, got %s", c.variant.Tag())
	}
	if !c.bar.hasWidth {
		return configErr("SetBarSpacing", "bar width is required to be set when setting bar spacing")
	}
	c.bar.spacing, c.bar.hasSpacing = spacing, true
	return nil
}

// SetGroupSpacing sets the space between groups of bars. Grouped bar
// charts only; the bar spacing must already be set.
func (c *Chart) SetGroupSpacing(spacing int) error {
	if err := c.requireFamily("SetGroupSpacing", familyBar); err != nil {
		return err
	}
	if !c.variant.grouped() {
		return configErr("SetGroupSpacing", "group spacing needs a grouped bar chart, got %s", c.variant.Tag())
	}
	if !c.bar.hasSpacing {
		return configErr("SetGroupSpacing", "bar spacing is required to be set when setting group spacing")
	}
	c.bar.groupSpacing, c.bar.hasGroup = spacing, true
	return nil
}

// SetZeroLine positions the zero line of dataset index, as a fraction of
// the chart height.
func (c *Chart) SetZeroLine(index int, zeroLine float64) error {
	if err := c.requireFamily("SetZeroLine", familyBar); err != nil {
		return err
	}
	if index < 0 {
		return configErr("SetZeroLine", "dataset index must not be negative, got %d", index)
	}
	if c.bar.zeroLines == nil {
		c.bar.zeroLines = make(map[int]float64)
	}
	c.bar.zeroLines[index] = zeroLine
	return nil
}

// barFragments emits chbh then chp, except for grouped kinds whose combined
// chbh follows chp.
func (c *Chart) barFragments() []string {
	var width, zero []string
	b := c.bar
	switch {
	case b.hasGroup:
		width = append(width, "chbh="+joinInts(b.width, b.spacing, b.groupSpacing))
	case b.hasSpacing:
		width = append(width, "chbh="+joinInts(b.width, b.spacing))
	case b.hasWidth:
		width = append(width, "chbh="+strconv.Itoa(b.width))
	}
	if len(b.zeroLines) > 0 {
		last := 0
		for i := range b.zeroLines {
			last = max(last, i)
		}
		lines := make([]string, last+1)
		for i := range lines {
			lines[i] = formatFloat(b.zeroLines[i])
		}
		zero = append(zero, "chp="+strings.Join(lines, ","))
	}
	if c.variant.grouped() {
		return append(zero, width...)
	}
	return append(width, zero...)
}

func joinInts(vals ...int) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// --- Pie charts ---

// SetPieLabels labels each slice. Pie and GoogleOMeter charts only.
func (c *Chart) SetPieLabels(labels []string) error {
	if err := c.requireFamily("SetPieLabels", familyPie); err != nil {
		return err
	}
	c.pieLabels = make([]string, len(labels))
	for i, l := range labels {
		c.pieLabels[i] = quote(l)
	}
	return nil
}

// --- Map charts ---

var geoAreas = map[string]bool{
	"africa": true, "asia": true, "europe": true, "middle_east": true,
	"south_america": true, "usa": true, "world": true,
}

// SetGeoArea selects the map region; the default is "world".
func (c *Chart) SetGeoArea(area string) error {
	if err := c.requireFamily("SetGeoArea", familyMap); err != nil {
		return err
	}
	if !geoAreas[area] {
		return configErr("SetGeoArea", "unknown geographical area %q", area)
	}
	c.geoArea = area
	return nil
}

// GeoArea returns the map region.
func (c *Chart) GeoArea() string { return c.geoArea }

// SetCodes sets the two-letter country or state codes to highlight.
func (c *Chart) SetCodes(codes []string) error {
	if err := c.requireFamily("SetCodes", familyMap); err != nil {
		return err
	}
	for _, code := range codes {
		if len(code) != 2 {
			return configErr("SetCodes", "codes must be two letters, got %q", code)
		}
	}
	c.codes = append([]string(nil), codes...)
	return nil
}

// AddDataDict sets codes and a matching dataset from a code-to-value map,
// in sorted code order.
func (c *Chart) AddDataDict(values map[string]float64) error {
	codes := make([]string, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if err := c.SetCodes(codes); err != nil {
		return err
	}
	ds := make(Dataset, len(codes))
	for i, code := range codes {
		ds[i] = values[code]
	}
	c.AddData(ds)
	return nil
}

func (c *Chart) mapFragments() []string {
	bits := []string{"chtm=" + c.geoArea}
	if len(c.codes) > 0 {
		bits = append(bits, "chld="+strings.Join(c.codes, ""))
	}
	return bits
}

// --- QR codes ---

type qrOptions struct {
	text           string
	hasText        bool
	outputEncoding string
	ecLevel        string
	margin         int
}

// AddText sets the QR payload. The text is sent as raw bytes, so non-UTF-8
// payloads must be paired with SetOutputEncoding.
func (c *Chart) AddText(text string) error {
	if err := c.requireFamily("AddText", familyQR); err != nil {
		return err
	}
	c.qr.text, c.qr.hasText = text, true
	return nil
}

// SetOutputEncoding sets the payload charset: UTF-8, Shift_JIS or ISO-8859-1.
func (c *Chart) SetOutputEncoding(enc string) error {
	if err := c.requireFamily("SetOutputEncoding", familyQR); err != nil {
		return err
	}
	switch enc {
	case "", "UTF-8", "Shift_JIS", "ISO-8859-1":
		c.qr.outputEncoding = enc
		return nil
	}
	return configErr("SetOutputEncoding", "unsupported output encoding %q", enc)
}

// SetErrorCorrection sets the error correction level (L, M, Q or H) and the
// quiet-zone margin in rows.
func (c *Chart) SetErrorCorrection(level string, margin int) error {
	if err := c.requireFamily("SetErrorCorrection", familyQR); err != nil {
		return err
	}
	switch level {
	case "L", "M", "Q", "H":
	default:
		return configErr("SetErrorCorrection", "error correction level must be L, M, Q or H, got %q", level)
	}
	if margin < 0 {
		return configErr("SetErrorCorrection", "margin must not be negative, got %d", margin)
	}
	c.qr.ecLevel, c.qr.margin = level, margin
	return nil
}

func (c *Chart) qrDataFragment() (string, error) {
	if !c.qr.hasText {
		return "", &NoDataError{ChartType: c.variant.Tag()}
	}
	return "chl=" + quote(c.qr.text), nil
}

func (c *Chart) qrFragments() []string {
	var bits []string
	if c.qr.outputEncoding != "" {
		bits = append(bits, "choe="+c.qr.outputEncoding)
	}
	if c.qr.ecLevel != "" {
		bits = append(bits, "chld="+c.qr.ecLevel+"|"+strconv.Itoa(c.qr.margin))
	}
	return bits
}
