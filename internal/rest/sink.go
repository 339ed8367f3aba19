package rest

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrorSink receives every failed attempt, retryable or not. Notify must not
// block for long; its return is never consumed.
type ErrorSink interface {
	Notify(err error)
}

// SinkFunc adapts a function to ErrorSink.
type SinkFunc func(err error)

func (f SinkFunc) Notify(err error) {
	if f != nil {
		f(err)
	}
}

// NopSink discards failures.
type NopSink struct{}

func (NopSink) Notify(error) {}

// MultiSink fans a failure out to every sink in order.
type MultiSink []ErrorSink

func (m MultiSink) Notify(err error) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(err)
		}
	}
}

// AttemptError describes one failed attempt. Sinks receive it wrapped
// around the underlying cause.
type AttemptError struct {
	RequestID string
	Bucket    string
	Method    string
	Path      string
	Attempt   int
	Err       error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d of %s %s (bucket %s): %v", e.Attempt, e.Method, e.Path, e.Bucket, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// LogSink writes failures to a structured logger.
type LogSink struct {
	Logger Logger
}

func (s LogSink) Notify(err error) {
	if s.Logger == nil || err == nil {
		return
	}
	fields := []zap.Field{zap.String("class", failureClass(err)), zap.Error(err)}

	var attempt *AttemptError
	if errors.As(err, &attempt) {
		fields = append(fields,
			zap.String("request_id", attempt.RequestID),
			zap.String("bucket", attempt.Bucket),
			zap.String("method", attempt.Method),
			zap.String("path", attempt.Path),
			zap.Int("attempt", attempt.Attempt))
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		fields = append(fields, zap.Int("status", httpErr.StatusCode))
	}

	s.Logger.Warn("Request attempt failed", fields...)
}

// MetricsSink counts failures by class.
type MetricsSink struct {
	Metrics *Metrics
}

func (s MetricsSink) Notify(err error) {
	if err == nil {
		return
	}
	s.Metrics.failure(failureClass(err))
}
