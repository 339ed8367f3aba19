package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/rest"
	"github.com/snowtransfer/snowtransfer/internal/server/middleware"
)

// Error codes used by the CLI and the proxy.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// FromRequestError converts an error returned by the dispatcher into an
// envelope. Remote details (status, bucket path, attempts) land in Context.
func FromRequestError(ctx context.Context, err error) *errors.ErrorEnvelope {
	if err == nil {
		return nil
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return EnsureCorrelationID(envelope, ctx)
	}

	details := map[string]interface{}{"wrapped_error": err.Error()}
	severity := errors.SeverityMedium

	var exhausted *rest.ExhaustedError
	var httpErr *rest.HTTPError
	if stderrors.As(err, &exhausted) {
		details["attempts"] = exhausted.Attempts
	}
	if stderrors.As(err, &httpErr) {
		details["status"] = httpErr.StatusCode
		details["method"] = httpErr.Method
		details["path"] = httpErr.Path
	}

	var code, message string
	switch {
	case stderrors.Is(err, rest.ErrInvalidRequest):
		code, message = CodeInvalidInput, "request could not be built"
	case exhausted != nil:
		code, message = CodeRetriesExhausted, "request failed on every allowed attempt"
		severity = errors.SeverityHigh
	case stderrors.Is(err, context.DeadlineExceeded):
		code, message = CodeTimeout, "request timed out"
	case httpErr != nil:
		code, message = codeFromStatus(httpErr.StatusCode), httpErr.Message
		if httpErr.StatusCode >= http.StatusInternalServerError {
			severity = errors.SeverityHigh
		}
	default:
		code, message = CodeExternalService, "remote API unreachable"
		severity = errors.SeverityHigh
	}

	envelope = errors.NewErrorEnvelope(code, message)
	envelope = withDetails(envelope, details)
	envelope, _ = envelope.WithSeverity(severity)
	return EnsureCorrelationID(envelope, ctx)
}

func codeFromStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case status >= 400 && status < 500:
		return CodeInvalidInput
	default:
		return CodeExternalService
	}
}

// ExitCodeFor picks the process exit code for a failed CLI request.
func ExitCodeFor(envelope *errors.ErrorEnvelope) foundry.ExitCode {
	if envelope == nil {
		return foundry.ExitFailure
	}
	switch envelope.Code {
	case CodeConfigInvalid:
		return foundry.ExitConfigInvalid
	case CodeRateLimited, CodeRetriesExhausted, CodeExternalService, CodeTimeout:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	return FromRequestError(context.Background(), err)
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}
	if envelope.CorrelationID != "" {
		return envelope
	}
	return envelope.WithCorrelationID(extractCorrelationID(ctx))
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeExternalService, CodeRetriesExhausted:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withDetails(envelope *errors.ErrorEnvelope, details map[string]interface{}) *errors.ErrorEnvelope {
	updated, err := envelope.WithContext(details)
	if err != nil {
		return envelope
	}
	return updated
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes err, writes it as JSON and returns the status
// and envelope that were written.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) (int, *errors.ErrorEnvelope) {
	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}

	var envelope *errors.ErrorEnvelope
	if env, ok := err.(*errors.ErrorEnvelope); ok && env != nil {
		envelope = EnsureCorrelationID(env, ctx)
	} else if err == nil {
		envelope = EnsureCorrelationID(EnsureEnvelope(nil), ctx)
	} else {
		envelope = FromRequestError(ctx, err)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)
	logHTTPError(envelope, statusCode)

	if w != nil {
		response := HTTPErrorResponse{
			Error: HTTPErrorDetail{
				Code:      envelope.Code,
				Message:   envelope.Message,
				Details:   envelope.Context,
				RequestID: envelope.CorrelationID,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response)
	}
	return statusCode, envelope
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}
