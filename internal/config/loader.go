// Package config provides centralized configuration management for
// snowtransfer, layered through viper and decoded with mapstructure.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SNOWTRANSFER_API_TOKEN for api.token.
const EnvPrefix = "SNOWTRANSFER"

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_host", "https://discordapp.com")
	v.SetDefault("api.base_url", "/api/v6")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "30s")

	// Rate limit defaults
	v.SetDefault("rate_limit.max_attempts", 3)
	v.SetDefault("rate_limit.reaction_floor", "250ms")
	v.SetDefault("rate_limit.global_rps", 0)
	v.SetDefault("rate_limit.global_burst", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("trace.file", "")
}

// BindEnv makes v read SNOWTRANSFER_* overrides for every known key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the effective configuration held by v.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	// AllSettings resolves env and flag overrides for every key that has a default.
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if c.RateLimit.MaxAttempts < 1 {
		return fmt.Errorf("rate_limit.max_attempts must be at least 1, got %d", c.RateLimit.MaxAttempts)
	}
	if c.RateLimit.ReactionFloor < 0 {
		return fmt.Errorf("rate_limit.reaction_floor must not be negative")
	}
	if c.RateLimit.GlobalRPS < 0 {
		return fmt.Errorf("rate_limit.global_rps must not be negative")
	}
	if !strings.HasPrefix(c.API.BaseURL, "/") {
		return fmt.Errorf("api.base_url must start with '/', got %q", c.API.BaseURL)
	}
	if strings.TrimSpace(c.API.BaseHost) == "" {
		return fmt.Errorf("api.base_host is required")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
