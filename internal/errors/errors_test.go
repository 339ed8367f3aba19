package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowtransfer/snowtransfer/internal/rest"
	"github.com/snowtransfer/snowtransfer/internal/server/middleware"
)

func TestFromRequestError(t *testing.T) {
	rateLimited := &rest.HTTPError{Method: "POST", Path: "/channels/1/messages", StatusCode: 429, Message: "slow down"}

	tests := []struct {
		name     string
		err      error
		code     string
		status   int
		exitCode foundry.ExitCode
	}{
		{"exhausted", &rest.ExhaustedError{Attempts: 3, Cause: rateLimited}, CodeRetriesExhausted, http.StatusBadGateway, foundry.ExitExternalServiceUnavailable},
		{"rate limited", rateLimited, CodeRateLimited, http.StatusTooManyRequests, foundry.ExitExternalServiceUnavailable},
		{"forbidden", &rest.HTTPError{StatusCode: 403, Message: "Missing Access"}, CodeForbidden, http.StatusForbidden, foundry.ExitFailure},
		{"bad request", &rest.HTTPError{StatusCode: 400, Message: "Invalid Form Body"}, CodeInvalidInput, http.StatusBadRequest, foundry.ExitFailure},
		{"server error", &rest.HTTPError{StatusCode: 500}, CodeExternalService, http.StatusBadGateway, foundry.ExitExternalServiceUnavailable},
		{"invalid request", fmt.Errorf("%w: path must start with '/'", rest.ErrInvalidRequest), CodeInvalidInput, http.StatusBadRequest, foundry.ExitFailure},
		{"timeout", fmt.Errorf("do request: %w", context.DeadlineExceeded), CodeTimeout, http.StatusGatewayTimeout, foundry.ExitExternalServiceUnavailable},
		{"transport", fmt.Errorf("dial tcp: connection refused"), CodeExternalService, http.StatusBadGateway, foundry.ExitExternalServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := FromRequestError(context.Background(), tt.err)
			require.NotNil(t, envelope)
			assert.Equal(t, tt.code, envelope.Code)
			assert.Equal(t, tt.status, HTTPStatusFromEnvelope(envelope))
			assert.Equal(t, tt.exitCode, ExitCodeFor(envelope))
			assert.NotEmpty(t, envelope.CorrelationID)
		})
	}
}

func TestFromRequestErrorCarriesAttempts(t *testing.T) {
	err := &rest.ExhaustedError{Attempts: 3, Cause: &rest.HTTPError{StatusCode: 502, Path: "/gateway"}}
	envelope := FromRequestError(context.Background(), err)

	assert.EqualValues(t, 3, envelope.Context["attempts"])
	assert.EqualValues(t, 502, envelope.Context["status"])
	assert.Equal(t, "/gateway", envelope.Context["path"])
}

func TestFromRequestErrorNil(t *testing.T) {
	assert.Nil(t, FromRequestError(context.Background(), nil))
}

func TestRespondWithErrorUsesRequestID(t *testing.T) {
	var gotStatus int
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus, _ = RespondWithError(w, r, &rest.HTTPError{StatusCode: 404, Message: "Unknown Channel"})
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/channels/1", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, gotStatus)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeNotFound, body.Error.Code)
	assert.Equal(t, "Unknown Channel", body.Error.Message)
	assert.Equal(t, "req-42", body.Error.RequestID)
}

func TestEnsureEnvelopePassesThroughEnvelopes(t *testing.T) {
	original := gferrors.NewErrorEnvelope(CodeConfigInvalid, "bad config")
	assert.Same(t, original, EnsureEnvelope(original))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(original))
	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}
