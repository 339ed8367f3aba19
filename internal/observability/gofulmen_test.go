package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snowtransfer/snowtransfer/internal/config"
	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/rest"
)

func TestLoggers(t *testing.T) {
	t.Run("CLI logger creation", func(t *testing.T) {
		observability.InitCLILogger("test-service", true)
		require.NotNil(t, observability.CLILogger)
		observability.CLILogger.Debug("Test CLI log message", zap.String("test", "value"))
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		observability.InitServerLogger("test-service", config.LoggingConfig{Level: "warn"})
		require.NotNil(t, observability.ServerLogger)
		observability.ServerLogger.Warn("Test structured log message", zap.String("bucket", "/gateway"))
	})

	t.Run("Satisfies rest logger", func(t *testing.T) {
		logger, err := observability.NewStructuredLogger("test-service", "debug")
		require.NoError(t, err)

		var _ rest.Logger = logger
	})
}

func TestInitMetricsExposesClientMetrics(t *testing.T) {
	telemetry := observability.InitMetrics(true)
	require.NotNil(t, telemetry.REST)
	telemetry.REST.GlobalLockouts.Inc()

	rec := httptest.NewRecorder()
	telemetry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snowtransfer_ratelimit_global_lockouts_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInitMetricsDisabled(t *testing.T) {
	telemetry := observability.InitMetrics(false)
	assert.Nil(t, telemetry.REST)
	assert.NotNil(t, telemetry.Handler())
}
