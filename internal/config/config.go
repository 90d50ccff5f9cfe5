// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Search  SearchConfig  `mapstructure:"search"`
	Browser BrowserConfig `mapstructure:"browser"`
	Cache   CacheConfig   `mapstructure:"cache"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SearchConfig governs the aggregation pipeline.
type SearchConfig struct {
	MaxResults        int     `mapstructure:"max_results"`
	OverallTimeoutSec int     `mapstructure:"overall_timeout_seconds"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
	BackoffInitialMs  int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs      int     `mapstructure:"backoff_max_ms"`
	MaxConcurrent     int     `mapstructure:"max_concurrent_scrapes"`
	SourceRPS         float64 `mapstructure:"source_rps"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	WaitTimeoutSec int    `mapstructure:"wait_timeout_seconds"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
	MaxEntries int `mapstructure:"max_entries"`
}

// HistoryConfig controls the optional Postgres search history recorder.
// An empty DSN disables recording.
type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEHAWK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.max_results", 40)
	v.SetDefault("search.overall_timeout_seconds", 45)
	v.SetDefault("search.max_attempts", 2)
	v.SetDefault("search.backoff_initial_ms", 500)
	v.SetDefault("search.backoff_max_ms", 8000)
	v.SetDefault("search.max_concurrent_scrapes", 3)
	v.SetDefault("search.source_rps", 1.0)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 768)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.wait_timeout_seconds", 8)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	if c.Search.MaxAttempts <= 0 {
		return fmt.Errorf("search.max_attempts must be > 0")
	}
	if c.Search.MaxConcurrent <= 0 {
		return fmt.Errorf("search.max_concurrent_scrapes must be > 0")
	}
	if c.Search.OverallTimeoutSec <= 0 {
		return fmt.Errorf("search.overall_timeout_seconds must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	return nil
}

// OverallTimeout converts the configured deadline into a duration.
func (c Config) OverallTimeout() time.Duration {
	return time.Duration(c.Search.OverallTimeoutSec) * time.Second
}

// CacheTTL converts the configured cache lifetime into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Backoff converts the retry backoff knobs into durations.
func (c Config) Backoff() (initial, max time.Duration) {
	return time.Duration(c.Search.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.Search.BackoffMaxMs) * time.Millisecond
}
