package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	errwrap "github.com/snowtransfer/snowtransfer/internal/errors"
	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local proxy that shares one set of rate-limit buckets",
	Long: `Start an HTTP proxy. Requests to /api/<route> are forwarded to the API
through a single ratelimiter, so every local process using the proxy shares
the same buckets and global lock.

Endpoints:
  /api/*     proxied API routes
  /buckets   bucket and global-lock snapshot (JSON)
  /health    aggregate health; degraded while the global lock is held
  /metrics   Prometheus metrics
  /version   build information

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: re-read the config file (restart to apply API settings)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.InitServerLogger(appName, loggingConfig())
		logger := observability.ServerLogger

		c, err := newClient(logger)
		if err != nil {
			return err
		}
		defer c.Close() // nolint:errcheck // best-effort cleanup

		logger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("api", c.cfg.API.Endpoint()),
			zap.String("host", c.cfg.Server.Host),
			zap.Int("port", c.cfg.Server.Port),
			zap.Bool("metrics", c.cfg.Metrics.Enabled))

		srv := server.New(c.cfg.Server, c.dispatcher, c.telemetry, versionInfo.Version)

		shutdownTimeout := c.cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Handlers run LIFO: the server stops before the logger is flushed.
		signals.OnShutdown(func(ctx context.Context) error {
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.FromRequestError(ctx, err)
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.NewConfigInvalidError("config reload failed: " + err.Error())
			}
			logger.Info("Configuration reloaded; API and rate limit settings apply after restart",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			errChan <- srv.Start()
		}()
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		return <-errChan
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
