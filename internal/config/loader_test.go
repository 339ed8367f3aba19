package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(newViper())
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "https://discordapp.com/api/v6", cfg.API.Endpoint())
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)

		assert.Equal(t, 3, cfg.RateLimit.MaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.ReactionFloor)
		assert.Zero(t, cfg.RateLimit.GlobalRPS)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Same(t, cfg, GetConfig())
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("SNOWTRANSFER_API_TOKEN", "Bot abc")
		t.Setenv("SNOWTRANSFER_API_BASE_HOST", "http://proxy.local/")
		t.Setenv("SNOWTRANSFER_RATE_LIMIT_REACTION_FLOOR", "1s")
		t.Setenv("SNOWTRANSFER_RATE_LIMIT_GLOBAL_RPS", "50")

		cfg, err := Load(newViper())
		require.NoError(t, err)
		assert.Equal(t, "Bot abc", cfg.API.Token)
		assert.Equal(t, "http://proxy.local/api/v6", cfg.API.Endpoint())
		assert.Equal(t, time.Second, cfg.RateLimit.ReactionFloor)
		assert.Equal(t, 50.0, cfg.RateLimit.GlobalRPS)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rate_limit:\n  max_attempts: 5\ntrace:\n  file: /tmp/trace.ndjson\n"), 0o600))

		v := newViper()
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.RateLimit.MaxAttempts)
		assert.Equal(t, "/tmp/trace.ndjson", cfg.Trace.File)
	})

	t.Run("RejectsZeroAttempts", func(t *testing.T) {
		v := newViper()
		v.Set("rate_limit.max_attempts", 0)

		_, err := Load(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_attempts")
	})
}

func TestRedacted(t *testing.T) {
	cfg := Config{API: APIConfig{Token: "Bot secret"}}
	assert.Equal(t, "[redacted]", cfg.Redacted().API.Token)
	assert.Equal(t, "Bot secret", cfg.API.Token)
}
