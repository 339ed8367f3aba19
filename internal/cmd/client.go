package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spf13/viper"

	"github.com/snowtransfer/snowtransfer/internal/config"
	apperrors "github.com/snowtransfer/snowtransfer/internal/errors"
	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// client bundles a configured dispatcher with what it reports into.
type client struct {
	cfg        *config.Config
	dispatcher *rest.Dispatcher
	telemetry  *observability.Telemetry
	trace      *rest.TraceSink
}

// newClient builds a dispatcher from the effective configuration. logger
// receives the client's own log lines and the per-attempt failure log.
func newClient(logger rest.Logger) (*client, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, configError(err)
	}
	if strings.TrimSpace(cfg.API.Token) == "" {
		observability.CLILogger.Warn("No token configured; set api.token, SNOWTRANSFER_API_TOKEN or --token")
	}

	telemetry := observability.InitMetrics(cfg.Metrics.Enabled)
	sinks := rest.MultiSink{
		rest.LogSink{Logger: logger},
		rest.MetricsSink{Metrics: telemetry.REST},
	}

	c := &client{cfg: cfg, telemetry: telemetry}
	if cfg.Trace.File != "" {
		trace, err := rest.OpenTraceSink(cfg.Trace.File)
		if err != nil {
			return nil, fmt.Errorf("enable tracing: %w", err)
		}
		c.trace = trace
		sinks = append(sinks, trace)
		logger.Debug("Failure tracing enabled", zap.String("file", cfg.Trace.File))
	}

	limiter := rest.NewRatelimiter(
		rest.WithReactionFloor(cfg.RateLimit.ReactionFloor),
		rest.WithGlobalRate(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst),
		rest.WithRatelimiterLogger(logger),
		rest.WithRatelimiterMetrics(telemetry.REST),
	)

	c.dispatcher = rest.NewDispatcher(limiter, cfg.API.Token,
		rest.WithBaseURL(cfg.API.Endpoint()),
		rest.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		rest.WithUserAgent(rest.UserAgent(versionInfo.Version)),
		rest.WithMaxAttempts(cfg.RateLimit.MaxAttempts),
		rest.WithErrorSink(sinks),
		rest.WithLogger(logger),
		rest.WithMetrics(telemetry.REST),
	)
	return c, nil
}

// Close releases the trace file, if any.
func (c *client) Close() error {
	if c.trace == nil {
		return nil
	}
	return c.trace.Close()
}

func configError(err error) error {
	envelope := apperrors.NewConfigInvalidError("invalid configuration: " + err.Error())
	envelope.Original = err
	return envelope
}
