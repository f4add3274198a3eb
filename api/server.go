// Package api provides the HTTP API server for gochartapi.
//
// It exposes endpoints that turn chart definitions into Google Chart API
// URLs, and optionally proxy the rendered PNG.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gak/gochartapi/internal/config"
	"github.com/gak/gochartapi/internal/grammar"
	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// maxBodyBytes bounds a definition request body.
const maxBodyBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	builder *grammar.Builder
	fetcher chart.Fetcher // nil disables POST /api/v1/chart
	logger  *bolt.Logger
}

// APIResponse is the JSON envelope of every endpoint except the image proxy.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TypeInfo describes one chart type.
type TypeInfo struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// URLResponse is returned by POST /api/v1/url.
type URLResponse struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// NewServer creates a configured API server with all routes and middleware.
// builder supplies chart defaults; fetcher may be nil.
func NewServer(cfg *config.Config, builder *grammar.Builder, fetcher chart.Fetcher, logger *bolt.Logger) *Server {
	if builder == nil {
		builder = &grammar.Builder{Width: cfg.Chart.Width, Height: cfg.Chart.Height}
	}
	if logger == nil {
		logger = logging.Get()
	}
	s := &Server{cfg: cfg, builder: builder, fetcher: fetcher, logger: logger}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.With(s.logger.Info(), logging.Component("api"), logging.Str("addr", addr)).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.With(s.logger.Info(), logging.Component("api")).Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/types", s.handleTypes)
		r.Post("/url", s.handleURL)
		r.Post("/chart", s.handleChart)

		// Live preview over WebSocket
		r.Get("/ws", s.handleWebSocket)

		// Configuration
		r.Get("/config", s.handleGetConfig)
	})

	return r
}

// requestLogger logs each request at debug level through bolt.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.With(s.logger.Debug(), logging.Component("api"),
			logging.Str("method", r.Method), logging.Str("path", r.URL.Path),
			logging.Int("status", ww.Status()), logging.Str("request_id", middleware.GetReqID(r.Context())),
			logging.Duration(time.Since(start))).Msg("request served")
	})
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":   "ok",
			"download": s.fetcher != nil,
		},
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.builder.Registry
	if reg == nil {
		reg = chart.Global()
	}
	var out []TypeInfo
	for _, tag := range reg.Types() {
		v, err := reg.Lookup(tag)
		if err != nil {
			continue
		}
		out = append(out, TypeInfo{Type: tag, Code: v.TypeCode()})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	c, ok := s.buildFromBody(w, r)
	if !ok {
		return
	}
	u, err := c.URL()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	width, height := c.Size()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    URLResponse{Type: c.Variant().Tag(), URL: u, Width: width, Height: height},
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		writeError(w, http.StatusNotImplemented, "chart download is disabled")
		return
	}
	c, ok := s.buildFromBody(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	// Download validates the whole response before anything is written.
	var img bytes.Buffer
	if err := c.Download(ctx, s.fetcher, &img); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", chart.PNGContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(img.Bytes())
}

// buildFromBody decodes a YAML or JSON definition from the request body and
// builds it. It writes the error response itself when ok is false.
func (s *Server) buildFromBody(w http.ResponseWriter, r *http.Request) (c *chart.Chart, ok bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	def, err := grammar.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chart definition: "+err.Error())
		return nil, false
	}
	if def.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return nil, false
	}
	c, err = s.builder.Build(def)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return c, true
}

// statusFor maps chart errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chart.ErrUnknownChartType):
		return http.StatusNotFound
	case errors.Is(err, chart.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chart.ErrInvalidParameters),
		errors.Is(err, chart.ErrUnknownEncoding),
		errors.Is(err, chart.ErrZeroRange),
		errors.Is(err, chart.ErrDataOutOfRange):
		return http.StatusBadRequest
	default:
		// Fetch failures and non-image responses from the chart service.
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.With(logging.Get().Warn(), logging.Component("api"), logging.ErrorField(err)).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
