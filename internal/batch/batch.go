// Package batch renders many chart definitions to image files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"golang.org/x/sync/errgroup"

	"github.com/gak/gochartapi/internal/grammar"
	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// Result is the outcome for one named chart.
type Result struct {
	Name     string
	URL      string
	Path     string
	Duration time.Duration
	Err      error
}

// Renderer downloads charts through a Fetcher into OutputDir.
type Renderer struct {
	Builder     *grammar.Builder
	Fetcher     chart.Fetcher
	OutputDir   string
	Concurrency int
	Logger      *bolt.Logger
}

func (r *Renderer) logger() *bolt.Logger {
	if r.Logger == nil {
		return logging.Get()
	}
	return r.Logger
}

func (r *Renderer) builder() *grammar.Builder {
	if r.Builder == nil {
		return &grammar.Builder{}
	}
	return r.Builder
}

// Render builds and downloads every chart. A failing chart does not stop
// the others; its error is recorded in its Result and joined into the
// returned error. Results keep the order of charts.
func (r *Renderer) Render(ctx context.Context, charts []grammar.Named) ([]Result, error) {
	if r.Fetcher == nil {
		return nil, fmt.Errorf("batch: no fetcher configured")
	}
	dir := r.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("batch: create output dir: %w", err)
	}

	results := make([]Result, len(charts))
	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))
	for i, n := range charts {
		g.Go(func() error {
			res := r.renderOne(gctx, dir, n)
			results[i] = res
			if res.Err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", n.Name, res.Err))
				mu.Unlock()
			}
			return nil // non-fatal
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := len(errs)
	logging.With(r.logger().Info(), logging.Component("batch"),
		logging.Int("charts", len(charts)), logging.Int("failed", failed)).Msg("batch render finished")
	if failed > 0 {
		return results, fmt.Errorf("batch: %d of %d charts failed: %w", failed, len(charts), errors.Join(errs...))
	}
	return results, nil
}

func (r *Renderer) renderOne(ctx context.Context, dir string, n grammar.Named) (res Result) {
	res.Name = n.Name
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			logging.With(r.logger().Warn(), logging.Component("batch"),
				logging.Str("chart", n.Name), logging.ErrorField(res.Err)).Msg("chart render failed")
		}
	}()

	if err := checkName(n.Name); err != nil {
		res.Err = err
		return res
	}
	c, err := r.builder().Build(n.Definition)
	if err != nil {
		res.Err = err
		return res
	}
	if res.URL, err = c.URL(); err != nil {
		res.Err = err
		return res
	}
	res.Path = filepath.Join(dir, n.Name+".png")
	if err := c.DownloadFile(ctx, r.Fetcher, res.Path); err != nil {
		res.Err = err
		return res
	}
	logging.With(r.logger().Debug(), logging.Component("batch"),
		logging.Str("chart", n.Name), logging.Str("path", res.Path),
		logging.Duration(time.Since(start))).Msg("chart rendered")
	return res
}

// URLs builds every chart and returns its URL without downloading.
func (r *Renderer) URLs(charts []grammar.Named) ([]Result, error) {
	results := make([]Result, len(charts))
	var errs []error
	for i, n := range charts {
		results[i].Name = n.Name
		c, err := r.builder().Build(n.Definition)
		if err == nil {
			results[i].URL, err = c.URL()
		}
		if err != nil {
			results[i].Err = err
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("batch: %w", errors.Join(errs...))
	}
	return results, nil
}

// Names become file names, so they may not leave the output directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid chart name %q", name)
	}
	return nil
}
