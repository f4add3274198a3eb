package chart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PNGContentType is the media type a rendered chart must carry.
const PNGContentType = "image/png"

// maxSummary bounds the error page text carried by a ContentTypeError.
const maxSummary = 200

// Response is a fetched chart image.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Fetcher performs the HTTP GET for a chart URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (*Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Response, error) { return f(ctx, url) }

// Download fetches the chart image and writes it to w unchanged. A response
// that is not a PNG yields a *ContentTypeError.
func (c *Chart) Download(ctx context.Context, f Fetcher, w io.Writer) error {
	u, err := c.URL()
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := f.Fetch(ctx, u)
	if err != nil {
		return fmt.Errorf("chart: fetch %s: %w", c.variant.Tag(), err)
	}
	if err := checkContentType(resp); err != nil {
		return err
	}
	if _, err := w.Write(resp.Body); err != nil {
		return fmt.Errorf("chart: write image: %w", err)
	}
	c.logger.Debug().
		Str("chart_type", c.variant.Tag()).
		Int("bytes", len(resp.Body)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("chart downloaded")
	return nil
}

// DownloadFile is Download into the file at path. The file is only created
// once the response has been validated.
func (c *Chart) DownloadFile(ctx context.Context, f Fetcher, path string) error {
	var buf bytes.Buffer
	if err := c.Download(ctx, f, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("chart: save %s: %w", path, err)
	}
	return nil
}

func checkContentType(resp *Response) error {
	mediaType, _, err := mime.ParseMediaType(resp.ContentType)
	if err == nil && mediaType == PNGContentType {
		return nil
	}
	return &ContentTypeError{
		Got:     resp.ContentType,
		Want:    PNGContentType,
		Summary: summarize(mediaType, resp.Body),
	}
}

// summarize extracts readable text from an HTML or plain-text error body.
func summarize(mediaType string, body []byte) string {
	var text string
	switch mediaType {
	case "text/html":
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return ""
		}
		text = doc.Find("body").Text()
		if text == "" {
			text = doc.Text()
		}
	case "text/plain":
		text = string(body)
	default:
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSummary {
		text = text[:maxSummary] + "..."
	}
	return text
}
