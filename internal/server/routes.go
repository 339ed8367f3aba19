package server

import (
	"github.com/snowtransfer/snowtransfer/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/buckets", handlers.BucketsHandler(s.dispatcher.Ratelimiter()))
	s.router.Method("GET", "/metrics", s.telemetry.Handler())

	s.router.HandleFunc("/api/*", handlers.ProxyHandler(s.dispatcher))
}
