package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// ErrDegraded marks a check that still works but with reduced capacity.
var ErrDegraded = stderrors.New("degraded")

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker defines interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthManager manages health checks
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	checks := make(map[string]string, len(hm.checkers))
	for name, checker := range hm.checkers {
		if ctx.Err() != nil {
			checks[name] = "timeout"
			continue
		}
		err := checker.CheckHealth(ctx)
		switch {
		case err == nil:
			checks[name] = "healthy"
		case stderrors.Is(err, ErrDegraded):
			checks[name] = "degraded"
		default:
			checks[name] = "unhealthy"
		}
	}
	return checks
}

func overallStatus(checks map[string]string) string {
	status := "healthy"
	for _, result := range checks {
		switch result {
		case "unhealthy":
			return "unhealthy"
		case "degraded", "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler handles aggregate health check requests
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := overallStatus(checks)

	if status == "unhealthy" {
		var unhealthy []string
		for name, result := range checks {
			if result != "healthy" {
				unhealthy = append(unhealthy, name)
			}
		}
		sort.Strings(unhealthy)

		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "aggregate health check failed")
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"status":           status,
			"unhealthy_checks": unhealthy,
		})
		respondWithError(w, r, envelope)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// RatelimiterChecker reports degraded while the global lock is held.
type RatelimiterChecker struct {
	Limiter *rest.Ratelimiter
}

func (c RatelimiterChecker) CheckHealth(ctx context.Context) error {
	if c.Limiter == nil {
		return stderrors.New("ratelimiter not configured")
	}
	lock := c.Limiter.GlobalLockState()
	if lock.Active && time.Now().Before(lock.ResetAt) {
		return fmt.Errorf("%w: global lock until %s", ErrDegraded, lock.ResetAt.Format(time.RFC3339Nano))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
