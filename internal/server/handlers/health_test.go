package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func serveHealth(t *testing.T, manager *HealthManager) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{})

	rec := serveHealth(t, manager)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["ok"])
}

func TestHealthHandlerReportsDegraded(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ratelimiter", stubChecker{err: fmt.Errorf("%w: global lock", ErrDegraded)})

	rec := serveHealth(t, manager)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("remote", stubChecker{err: errors.New("down")})

	rec := serveHealth(t, manager)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERVICE_UNAVAILABLE")
}

func TestRatelimiterChecker(t *testing.T) {
	limiter := rest.NewRatelimiter()
	assert.NoError(t, RatelimiterChecker{Limiter: limiter}.CheckHealth(context.Background()))

	headers := http.Header{}
	headers.Set(rest.HeaderGlobal, "true")
	headers.Set(rest.HeaderRetryAfter, "60000")
	limiter.ApplyHeaders(limiter.Bucket("/gateway"), rest.ParseRateLimitHeaders(headers), time.Now(), false)

	err := RatelimiterChecker{Limiter: limiter}.CheckHealth(context.Background())
	assert.ErrorIs(t, err, ErrDegraded)

	assert.Error(t, RatelimiterChecker{}.CheckHealth(context.Background()))
}
