package infra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/gak/gochartapi/internal/config"
	"github.com/gak/gochartapi/pkg/chart"
)

var png = []byte("\x89PNG\r\n\x1a\nimage")

func testClient(t *testing.T, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	cfg.Logger = bolt.New(bolt.NewJSONHandler(io.Discard))
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestFetchReturnsImage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{UserAgent: "chart-test/2"})
	resp, err := c.Fetch(context.Background(), srv.URL+"/chart?cht=lc")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !bytes.Equal(resp.Body, png) {
		t.Errorf("body: got %q", resp.Body)
	}
	if resp.ContentType != "image/png" || resp.StatusCode != http.StatusOK {
		t.Errorf("got content type %q status %d", resp.ContentType, resp.StatusCode)
	}
	if gotUA != "chart-test/2" {
		t.Errorf("User-Agent: got %q", gotUA)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{MaxRetries: 3})
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("hits: got %d, want 3", n)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad chart", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{MaxRetries: 3})
	_, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrClientStatus) {
		t.Fatalf("got %v, want ErrClientStatus", err)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Errorf("got %v, want *HTTPError 400", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("hits: got %d, want 1", n)
	}
}

func TestFetchCachesResponses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background(), srv.URL+"/a"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Fetch(context.Background(), srv.URL+"/b"); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("hits: got %d, want 2", n)
	}
}

func TestFetchDoesNotCacheErrorPages(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body>quota exceeded</body></html>"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{CacheTTL: time.Minute})
	ch, err := chart.New(chart.Pie2D, 100, 100, chart.WithBaseURL(srv.URL+"/chart?"), chart.WithSink(chart.Discard))
	if err != nil {
		t.Fatal(err)
	}
	ch.AddData(chart.Dataset{1, 2})

	var buf bytes.Buffer
	if err := ch.Download(context.Background(), c, &buf); !errors.Is(err, chart.ErrBadContentType) {
		t.Fatalf("first download: got %v, want ErrBadContentType", err)
	}
	if err := ch.Download(context.Background(), c, &buf); err != nil {
		t.Fatalf("second download: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), png) {
		t.Errorf("body: got %q", buf.Bytes())
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("hits: got %d, want 2", n)
	}
}

func TestClientDownloadsChart(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{})
	ch, err := chart.New(chart.QR, 100, 150, chart.WithBaseURL(srv.URL+"/chart?"), chart.WithSink(chart.Discard))
	if err != nil {
		t.Fatal(err)
	}
	ch.AddText("Hello World")

	var buf bytes.Buffer
	if err := ch.Download(context.Background(), c, &buf); err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if gotQuery != "cht=qr&chs=100x150&chl=Hello%20World" {
		t.Errorf("query: got %q", gotQuery)
	}
	if !bytes.Equal(buf.Bytes(), png) {
		t.Errorf("body: got %q", buf.Bytes())
	}
}

func TestClientDownloadRejectsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>quota exceeded</body></html>"))
	}))
	defer srv.Close()

	c := testClient(t, ClientConfig{})
	ch, _ := chart.New(chart.SimpleLine, 100, 100, chart.WithBaseURL(srv.URL+"/?"), chart.WithSink(chart.Discard))
	ch.AddData(chart.Dataset{1, 2})

	err := ch.Download(context.Background(), c, io.Discard)
	var ce *chart.ContentTypeError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *chart.ContentTypeError", err)
	}
	if ce.Summary != "quota exceeded" {
		t.Errorf("summary: got %q", ce.Summary)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.HTTPConfig{
		Timeout:    2 * time.Second,
		MaxRetries: 7,
		RateLimit:  5,
		RateWindow: time.Minute,
		UserAgent:  "x/1",
	})
	if cfg.Timeout != 2*time.Second || cfg.MaxRetries != 7 || cfg.RateLimit != 5 || cfg.UserAgent != "x/1" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.BreakerThreshold != 5 {
		t.Errorf("BreakerThreshold: got %d, want default 5", cfg.BreakerThreshold)
	}
}

func TestNewClientBadProxy(t *testing.T) {
	if _, err := NewClient(ClientConfig{ProxyURL: "://bad"}); err == nil {
		t.Error("expected error for malformed proxy URL")
	}
}
