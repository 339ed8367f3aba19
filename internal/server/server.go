package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/snowtransfer/snowtransfer/internal/config"
	apperrors "github.com/snowtransfer/snowtransfer/internal/errors"
	"github.com/snowtransfer/snowtransfer/internal/metrics"
	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/rest"
	"github.com/snowtransfer/snowtransfer/internal/server/handlers"
	servermw "github.com/snowtransfer/snowtransfer/internal/server/middleware"
)

// Server is the HTTP proxy that funnels callers through one dispatcher.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	cfg        config.ServerConfig
	dispatcher *rest.Dispatcher
	telemetry  *observability.Telemetry
	metrics    *metrics.HTTP
	health     *handlers.HealthManager
}

// New creates a new HTTP server instance
func New(cfg config.ServerConfig, d *rest.Dispatcher, telemetry *observability.Telemetry, version string) *Server {
	if telemetry == nil {
		telemetry = observability.InitMetrics(false)
	}

	s := &Server{
		router:     chi.NewRouter(),
		cfg:        cfg,
		dispatcher: d,
		telemetry:  telemetry,
		health:     handlers.NewHealthManager(version),
	}
	if telemetry.REST != nil {
		s.metrics = metrics.NewHTTP(telemetry.Registry)
	}
	s.health.RegisterChecker("ratelimiter", handlers.RatelimiterChecker{Limiter: d.Ratelimiter()})

	r := s.router
	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics(s.metrics))
	r.Use(servermw.Recovery(s.metrics))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		s.HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	handlers.SetHTTPErrorResponder(s.HandleError)
	s.registerRoutes()
	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	logger().Info("Starting HTTP server",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.String("addr", addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	logger().Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// HandleError writes err as an envelope and counts it.
func (s *Server) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status, envelope := apperrors.RespondWithError(w, r, err)
	s.metrics.RecordError(envelope.Code, status)
}

func logger() rest.Logger {
	if observability.ServerLogger != nil {
		return observability.ServerLogger
	}
	return zap.NewNop()
}
