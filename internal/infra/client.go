package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/gak/gochartapi/internal/config"
	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// ErrClientStatus marks 4xx responses, which are not retried.
var ErrClientStatus = errors.New("client error status")

// maxBodySize bounds a fetched image.
const maxBodySize = 8 << 20

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Unwrap lets 4xx responses match ErrClientStatus.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrClientStatus
	}
	return nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	RateLimit        int
	RateWindow       time.Duration
	CacheTTL         time.Duration
	UserAgent        string
	ProxyURL         string
	BreakerThreshold int
	Logger           *bolt.Logger
}

// DefaultClientConfig returns a configuration with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:          15 * time.Second,
		MaxRetries:       3,
		RetryDelay:       500 * time.Millisecond,
		CacheTTL:         10 * time.Minute,
		UserAgent:        "gochartapi/1.0",
		BreakerThreshold: 5,
	}
}

// ConfigFrom maps the http config section onto a ClientConfig.
func ConfigFrom(c config.HTTPConfig) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Timeout = c.Timeout
	cfg.MaxRetries = c.MaxRetries
	cfg.RetryDelay = c.RetryDelay
	cfg.RateLimit = c.RateLimit
	cfg.RateWindow = c.RateWindow
	cfg.CacheTTL = c.CacheTTL
	cfg.UserAgent = c.UserAgent
	cfg.ProxyURL = c.ProxyURL
	return cfg
}

// Client fetches chart images. It implements chart.Fetcher and is safe for
// concurrent use.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *RateLimiter
	cache   *Cache[*chart.Response]
	retrier retry.Retry[*chart.Response]
	breaker circuitbreaker.CircuitBreaker[*chart.Response]
	logger  *bolt.Logger
}

var _ chart.Fetcher = (*Client)(nil)

// NewClient creates a client from cfg; zero fields take their defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	def := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = def.BreakerThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Get()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	threshold := uint32(cfg.BreakerThreshold) // #nosec G115 -- positive, checked above
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		cache:   NewCache[*chart.Response](cfg.CacheTTL),
		retrier: retry.New[*chart.Response](retry.Config{
			MaxAttempts:   cfg.MaxRetries,
			InitialDelay:  cfg.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// 4xx means the URL itself is wrong; asking again will not help.
			NonRetryableErrors: []error{ErrClientStatus},
		}),
		breaker: circuitbreaker.New[*chart.Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		logger: cfg.Logger,
	}, nil
}

// Fetch performs a GET for rawURL, serving repeated URLs from the cache.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*chart.Response, error) {
	if resp, ok := c.cache.Get(rawURL); ok {
		logging.With(c.logger.Debug(), logging.Component("infra"), logging.URL(rawURL), logging.Cached(true)).
			Msg("chart fetched")
		return resp, nil
	}

	start := time.Now()
	attempt := 0
	resp, err := c.breaker.Execute(ctx, func(ctx context.Context) (*chart.Response, error) {
		return c.retrier.Do(ctx, func(ctx context.Context) (*chart.Response, error) {
			attempt++
			if attempt > 1 {
				logging.With(c.logger.Info(), logging.Component("infra"), logging.URL(rawURL), logging.Attempt(attempt)).
					Msg("retrying chart fetch")
			}
			return c.get(ctx, rawURL)
		})
	})
	if err != nil {
		logging.With(c.logger.Warn(), logging.Component("infra"), logging.URL(rawURL),
			logging.Attempt(attempt), logging.ErrorField(err)).Msg("chart fetch failed")
		return nil, err
	}

	if isPNG(resp) {
		c.cache.Set(rawURL, resp)
	}
	logging.With(c.logger.Debug(), logging.Component("infra"), logging.URL(rawURL),
		logging.Duration(time.Since(start)), logging.Cached(false)).Msg("chart fetched")
	return resp, nil
}

// isPNG reports whether resp carries a chart image. Error pages served
// with a 200 are never cached.
func isPNG(resp *chart.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.ContentType)
	return err == nil && mediaType == chart.PNGContentType
}

func (c *Client) get(ctx context.Context, rawURL string) (*chart.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "image/png, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &chart.Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
