package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/gak/gochartapi/internal/infra"
	"github.com/gak/gochartapi/pkg/chart"
)

// Activity counts feed items published per day, oldest day first.
type Activity struct {
	Title  string
	Days   []time.Time
	Counts chart.Dataset
}

// Labels returns the day labels, e.g. "Jan 2".
func (a *Activity) Labels() []string {
	out := make([]string, len(a.Days))
	for i, d := range a.Days {
		out[i] = d.Format("Jan 2")
	}
	return out
}

// Total returns the number of items counted.
func (a *Activity) Total() int {
	n := 0
	for _, v := range a.Counts {
		n += int(v)
	}
	return n
}

// Chart builds a chart of v with one dataset of daily counts, the feed
// title and the days as bottom axis labels.
func (a *Activity) Chart(v chart.Variant, width, height int, opts ...chart.Option) (*chart.Chart, error) {
	opts = append([]chart.Option{chart.WithTitle(a.Title)}, opts...)
	c, err := chart.New(v, width, height, opts...)
	if err != nil {
		return nil, err
	}
	c.AddData(a.Counts)
	if _, err := c.SetAxisLabels(chart.AxisBottom, a.Labels()); err != nil {
		return nil, err
	}
	return c, nil
}

// FeedReader fetches RSS and Atom feeds.
type FeedReader struct {
	parser  *gofeed.Parser
	limiter *infra.RateLimiter
}

// NewFeedReader creates a reader. client may be nil; limiter may be nil for
// unlimited requests.
func NewFeedReader(client *http.Client, userAgent string, limiter *infra.RateLimiter) *FeedReader {
	p := gofeed.NewParser()
	if client != nil {
		p.Client = client
	}
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &FeedReader{parser: p, limiter: limiter}
}

// Fetch downloads and parses the feed at url.
func (r *FeedReader) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	feed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	return feed, nil
}

// Parse reads a feed document from rd.
func (r *FeedReader) Parse(rd io.Reader) (*gofeed.Feed, error) {
	feed, err := r.parser.Parse(rd)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// DailyActivity counts the items of feed published on each of the days
// calendar days ending with the day of now, in now's location. Items
// without a date, or outside the window, are not counted.
func DailyActivity(feed *gofeed.Feed, days int, now time.Time) *Activity {
	if days < 1 {
		days = 1
	}
	loc := now.Location()
	end := startOfDay(now)
	first := end.AddDate(0, 0, -(days - 1))

	a := &Activity{
		Title:  cleanHTML(feed.Title),
		Days:   make([]time.Time, days),
		Counts: make(chart.Dataset, days),
	}
	for i := range a.Days {
		a.Days[i] = first.AddDate(0, 0, i)
	}
	for _, item := range feed.Items {
		ts := item.PublishedParsed
		if ts == nil {
			ts = item.UpdatedParsed
		}
		if ts == nil {
			continue
		}
		day := startOfDay(ts.In(loc))
		if day.Before(first) || day.After(end) {
			continue
		}
		// Day index by calendar date, not elapsed hours, so DST is harmless.
		for i, d := range a.Days {
			if d.Equal(day) {
				a.Counts[i]++
				break
			}
		}
	}
	return a
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
