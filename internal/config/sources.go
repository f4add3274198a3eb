package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Source represents where a setting's value comes from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// Setting is one resolved configuration value, for display.
type Setting struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Describe lists every setting of cfg with its source. Proxy credentials
// are masked.
func Describe(cfg *Config) []Setting {
	def := Defaults()
	return []Setting{
		describe("chart.base_url", cfg.Chart.BaseURL, def.Chart.BaseURL),
		describe("chart.encoding", cfg.Chart.Encoding, def.Chart.Encoding),
		describe("chart.width", cfg.Chart.Width, def.Chart.Width),
		describe("chart.height", cfg.Chart.Height, def.Chart.Height),
		describe("http.timeout", cfg.HTTP.Timeout, def.HTTP.Timeout),
		describe("http.max_retries", cfg.HTTP.MaxRetries, def.HTTP.MaxRetries),
		describe("http.retry_delay", cfg.HTTP.RetryDelay, def.HTTP.RetryDelay),
		describe("http.rate_limit", cfg.HTTP.RateLimit, def.HTTP.RateLimit),
		describe("http.rate_window", cfg.HTTP.RateWindow, def.HTTP.RateWindow),
		describe("http.cache_ttl", cfg.HTTP.CacheTTL, def.HTTP.CacheTTL),
		describe("http.user_agent", cfg.HTTP.UserAgent, def.HTTP.UserAgent),
		maskSetting(describe("http.proxy_url", cfg.HTTP.ProxyURL, def.HTTP.ProxyURL)),
		describe("render.concurrency", cfg.Render.Concurrency, def.Render.Concurrency),
		describe("render.output_dir", cfg.Render.OutputDir, def.Render.OutputDir),
		describe("api.host", cfg.API.Host, def.API.Host),
		describe("api.port", cfg.API.Port, def.API.Port),
		describe("api.cors_origins", strings.Join(cfg.API.CORSOrigins, ","), strings.Join(def.API.CORSOrigins, ",")),
		describe("logging.level", cfg.Logging.Level, def.Logging.Level),
		describe("logging.format", cfg.Logging.Format, def.Logging.Format),
	}
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func describe[T comparable](key string, value, def T) Setting {
	s := Setting{Key: key, Value: fmt.Sprint(value)}
	switch {
	case os.Getenv(EnvVar(key)) != "":
		s.Source = SourceEnv
	case value != def:
		s.Source = SourceConfig
	default:
		s.Source = SourceDefault
	}
	return s
}

func maskSetting(s Setting) Setting {
	s.Value = maskURL(s.Value)
	return s
}

// maskURL hides the password of a URL with user info.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
