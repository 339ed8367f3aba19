package config

import (
	"strings"
	"time"
)

// Config represents the complete application configuration.
// Values come from, in increasing precedence: defaults, an optional YAML
// file, SNOWTRANSFER_* environment variables and command-line flags.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Trace     TraceConfig     `mapstructure:"trace" yaml:"trace"`
}

// APIConfig describes the remote REST API.
type APIConfig struct {
	// BaseHost can point at a proxy instead of the public API.
	BaseHost string        `mapstructure:"base_host" yaml:"base_host"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	Token    string        `mapstructure:"token" yaml:"token"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Endpoint joins the base host and the versioned API prefix.
func (c APIConfig) Endpoint() string {
	return strings.TrimRight(c.BaseHost, "/") + c.BaseURL
}

// RateLimitConfig tunes the ratelimiter and the retry loop.
type RateLimitConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	ReactionFloor time.Duration `mapstructure:"reaction_floor" yaml:"reaction_floor"`

	// GlobalRPS paces dispatches across all buckets; 0 disables pacing.
	GlobalRPS   float64 `mapstructure:"global_rps" yaml:"global_rps"`
	GlobalBurst int     `mapstructure:"global_burst" yaml:"global_burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Valid values: simple, structured
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig contains HTTP server configuration for the proxy.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// TraceConfig enables the NDJSON failure trace.
type TraceConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.API.Token != "" {
		c.API.Token = "[redacted]"
	}
	return c
}
