package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snowtransfer/snowtransfer/internal/endpoints"
)

const (
	// DefaultMaxAttempts bounds the network attempts of one logical request.
	DefaultMaxAttempts = 3

	// AuditLogReasonHeader carries the payload's reason field.
	AuditLogReasonHeader = "X-Audit-Log-Reason"

	// Version is reported in the default user agent.
	Version = "0.4.0"

	userAgentFormat = "DiscordBot (https://github.com/snowtransfer/snowtransfer, %s)"

	defaultLatency = 500 * time.Millisecond
)

// DefaultUserAgent is attached to every call unless overridden.
var DefaultUserAgent = UserAgent(Version)

// UserAgent formats the user agent for a build version; an empty or "dev"
// version falls back to Version.
func UserAgent(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || version == "dev" {
		version = Version
	}
	return fmt.Sprintf(userAgentFormat, version)
}

// Dispatcher turns logical requests into paced network attempts and
// resolves each with exactly one payload or one terminal error.
type Dispatcher struct {
	limiter     *Ratelimiter
	client      *http.Client
	baseURL     string
	token       string
	userAgent   string
	maxAttempts int
	sink        ErrorSink
	logger      Logger
	metrics     *Metrics

	latency atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBaseURL sets the host and API prefix, e.g. "https://discordapp.com/api/v6".
func WithBaseURL(baseURL string) Option {
	return func(d *Dispatcher) {
		if url := strings.TrimSpace(baseURL); url != "" {
			d.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) Option {
	return func(d *Dispatcher) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			d.userAgent = ua
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithErrorSink sets the observer notified of every failed attempt.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) {
		if sink != nil {
			d.sink = sink
		}
	}
}

func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher returns a dispatcher sending calls through limiter. token is
// sent verbatim as the Authorization header.
func NewDispatcher(limiter *Ratelimiter, token string, opts ...Option) *Dispatcher {
	if limiter == nil {
		limiter = NewRatelimiter()
	}
	d := &Dispatcher{
		limiter:     limiter,
		client:      http.DefaultClient,
		baseURL:     endpoints.BaseHost + endpoints.BaseURL,
		token:       strings.TrimSpace(token),
		userAgent:   DefaultUserAgent,
		maxAttempts: DefaultMaxAttempts,
		sink:        NopSink{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.latency.Store(int64(defaultLatency))
	return d
}

// Ratelimiter returns the limiter the dispatcher queues on.
func (d *Dispatcher) Ratelimiter() *Ratelimiter {
	return d.limiter
}

// Latency returns the submission-to-response time of the last successful
// attempt.
func (d *Dispatcher) Latency() time.Duration {
	return time.Duration(d.latency.Load())
}

type attemptResult struct {
	body json.RawMessage
	err  error
}

// Request performs a logical request. The body of a successful response is
// returned as-is; an empty body yields a nil result.
//
// Rate-limit (429) and upstream-unavailable (502) failures are retried up to
// the attempt limit, after which an *ExhaustedError wraps the last cause.
// Other failures are returned immediately. ctx bounds each network exchange
// but does not remove a call from its bucket queue.
func (d *Dispatcher) Request(ctx context.Context, path, method string, payload Payload) (json.RawMessage, error) {
	requestID := RequestIDFromContext(ctx)

	prepared, err := prepare(path, method, payload)
	if err != nil {
		d.sink.Notify(&AttemptError{RequestID: requestID, Method: method, Path: path, Err: err})
		return nil, err
	}

	route := prepared.route
	for attempt := 1; ; attempt++ {
		var result attemptResult
		submitted := time.Now()
		done := d.limiter.Queue(func(b *Bucket) {
			result = d.attempt(ctx, b, prepared, submitted)
		}, route.Path, prepared.method)
		<-done

		if result.err == nil {
			return result.body, nil
		}

		d.sink.Notify(&AttemptError{
			RequestID: requestID,
			Bucket:    route.BucketKey,
			Method:    prepared.method,
			Path:      route.Path,
			Attempt:   attempt,
			Err:       result.err,
		})

		if attempt >= d.maxAttempts {
			return nil, &ExhaustedError{Attempts: attempt, Cause: result.err}
		}

		var reason string
		switch {
		case errors.Is(result.err, ErrRateLimited):
			reason = "rate_limited"
		case errors.Is(result.err, ErrUpstreamUnavailable):
			reason = "upstream_unavailable"
		default:
			return nil, result.err
		}

		d.metrics.retry(reason)
		d.logger.Debug("Retrying request",
			zap.String("request_id", requestID),
			zap.String("bucket", route.BucketKey),
			zap.String("reason", reason),
			zap.Int("attempt", attempt))
	}
}

// attempt runs one network exchange while holding the bucket's dispatch
// slot. Headers are applied before returning so the drain loop sees them
// before releasing the next call.
func (d *Dispatcher) attempt(ctx context.Context, b *Bucket, p *preparedRequest, submitted time.Time) attemptResult {
	req, err := p.newRequest(ctx, d.baseURL)
	if err != nil {
		return attemptResult{err: err}
	}
	if d.token != "" {
		req.Header.Set("Authorization", d.token)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		d.metrics.request(b.Key, p.method, 0)
		return attemptResult{err: fmt.Errorf("%s %s: %w", p.method, p.route.Path, err)}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, readErr := io.ReadAll(resp.Body)
	now := d.limiter.clock()
	d.metrics.request(b.Key, p.method, resp.StatusCode)

	reaction := endpoints.IsReactionRoute(b.Key)
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		elapsed := time.Since(submitted)
		d.latency.Store(int64(elapsed))
		d.metrics.latency(b.Key, elapsed)
		d.limiter.ApplyHeaders(b, ParseRateLimitHeaders(resp.Header), now, reaction)

		if readErr != nil {
			return attemptResult{err: fmt.Errorf("read response: %w", readErr)}
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return attemptResult{}
		}
		return attemptResult{body: json.RawMessage(body)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Pacing under-predicted the limit. The rejecting response still
		// carries the remote's view of the bucket, so take it.
		d.logger.Warn("Rate limited despite pacing, applying headers from 429 response",
			zap.String("bucket", b.Key),
			zap.String("remaining", resp.Header.Get(HeaderRemaining)),
			zap.String("reset", resp.Header.Get(HeaderReset)),
			zap.Bool("global", resp.Header.Get(HeaderGlobal) != ""))
		d.metrics.headersOn429(b.Key)
		d.limiter.ApplyHeaders(b, ParseRateLimitHeaders(resp.Header), now, reaction)
	}

	return attemptResult{err: &HTTPError{
		Method:     p.method,
		Path:       p.route.Path,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		Body:       body,
	}}
}

type requestIDKey struct{}

// ContextWithRequestID makes Request report id instead of generating one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the caller's request ID or a new uuid.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Do performs a request and decodes the response into T. An empty response
// leaves T at its zero value.
func Do[T any](ctx context.Context, d *Dispatcher, path, method string, payload Payload) (T, error) {
	var out T
	raw, err := d.Request(ctx, path, method, payload)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
