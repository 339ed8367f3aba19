package rest

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches a 429 response.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamUnavailable matches a 502 response.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidRequest indicates the request could not be built locally.
	ErrInvalidRequest = errors.New("invalid request")
)

// HTTPError is returned when the remote responds with a non-2xx status.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is lets errors.Is match the retryable status sentinels.
func (e *HTTPError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUpstreamUnavailable:
		return e.StatusCode == http.StatusBadGateway
	}
	return false
}

// ExhaustedError is returned when a request failed on every allowed attempt.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a failure class the dispatcher retries.
// An ExhaustedError is never retryable, whatever its cause.
func IsRetryable(err error) bool {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamUnavailable)
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// failureClass names the class of err for metrics and traces.
func failureClass(err error) string {
	var httpErr *HTTPError
	var exhausted *ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return "exhausted"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.As(err, &httpErr):
		return "remote"
	default:
		return "transport"
	}
}
