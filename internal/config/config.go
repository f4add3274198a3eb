// Package config handles configuration loading for gochartapi.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOCHARTAPI"

// Config represents the complete application configuration.
type Config struct {
	Chart   ChartConfig   `mapstructure:"chart"   yaml:"chart"`
	HTTP    HTTPConfig    `mapstructure:"http"    yaml:"http"`
	Render  RenderConfig  `mapstructure:"render"  yaml:"render"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ChartConfig holds defaults applied to charts built by the CLI.
type ChartConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"` // "", "simple", "text", "extended"
	Width    int    `mapstructure:"width"    yaml:"width"`
	Height   int    `mapstructure:"height"   yaml:"height"`
}

// HTTPConfig holds settings for fetching rendered images.
type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	RateLimit  int           `mapstructure:"rate_limit"  yaml:"rate_limit"` // requests per window
	RateWindow time.Duration `mapstructure:"rate_window" yaml:"rate_window"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"   yaml:"cache_ttl"`
	UserAgent  string        `mapstructure:"user_agent"  yaml:"user_agent"`
	ProxyURL   string        `mapstructure:"proxy_url"   yaml:"proxy_url"`
}

// RenderConfig holds batch rendering settings.
type RenderConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	OutputDir   string `mapstructure:"output_dir"  yaml:"output_dir"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "trace", "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.gochartapi/config.yaml
//  3. /etc/gochartapi/config.yaml
//
// Environment variables override config file values.
// Format: GOCHARTAPI_<SECTION>_<KEY>, e.g., GOCHARTAPI_HTTP_TIMEOUT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".gochartapi"))
	v.AddConfigPath("/etc/gochartapi")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Defaults returns the configuration used when no file or environment
// override is present.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if !strings.HasSuffix(c.Chart.BaseURL, "?") {
		return fmt.Errorf("config: chart.base_url %q must end with '?'", c.Chart.BaseURL)
	}
	switch strings.ToLower(c.Chart.Encoding) {
	case "", "simple", "text", "extended":
	default:
		return fmt.Errorf("config: unknown chart.encoding %q", c.Chart.Encoding)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("config: chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	if c.HTTP.MaxRetries < 1 {
		return fmt.Errorf("config: http.max_retries must be at least 1, got %d", c.HTTP.MaxRetries)
	}
	if c.Render.Concurrency < 1 {
		return fmt.Errorf("config: render.concurrency must be at least 1, got %d", c.Render.Concurrency)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port out of range: %d", c.API.Port)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Chart defaults
	v.SetDefault("chart.base_url", "http://chart.apis.google.com/chart?")
	v.SetDefault("chart.encoding", "")
	v.SetDefault("chart.width", 400)
	v.SetDefault("chart.height", 200)

	// HTTP defaults
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_delay", 500*time.Millisecond)
	v.SetDefault("http.rate_limit", 10)
	v.SetDefault("http.rate_window", time.Second)
	v.SetDefault("http.cache_ttl", 10*time.Minute)
	v.SetDefault("http.user_agent", "gochartapi/1.0")
	v.SetDefault("http.proxy_url", "")

	// Render defaults
	v.SetDefault("render.concurrency", 4)
	v.SetDefault("render.output_dir", ".")

	// API defaults
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv reads the proxy from the conventional variable when the
// prefixed one is unset.
func overrideFromEnv(cfg *Config) {
	if cfg.HTTP.ProxyURL != "" {
		return
	}
	if p := os.Getenv("HTTPS_PROXY"); p != "" {
		cfg.HTTP.ProxyURL = p
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
