package rest

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Rate-limit response headers.
const (
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderGlobal     = "X-RateLimit-Global"
	HeaderRetryAfter = "Retry-After"
	HeaderDate       = "Date"
)

// RateLimitHeaders is the typed view of the rate-limit headers on one
// response. Nil pointers mean the header was absent or unparseable.
type RateLimitHeaders struct {
	Remaining *int
	Limit     *int
	// Reset is the end of the current window in remote-clock terms.
	Reset *time.Time
	// Global marks a service-wide lockout lasting RetryAfter.
	Global     bool
	RetryAfter time.Duration
	// ServerTime is the remote's current time, used for offset correction.
	ServerTime *time.Time
}

// ParseRateLimitHeaders extracts the rate-limit fields from h.
func ParseRateLimitHeaders(h http.Header) RateLimitHeaders {
	var out RateLimitHeaders
	if h == nil {
		return out
	}

	out.Remaining = parseIntHeader(h.Get(HeaderRemaining))
	out.Limit = parseIntHeader(h.Get(HeaderLimit))

	if raw := strings.TrimSpace(h.Get(HeaderReset)); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			whole, frac := math.Modf(secs)
			reset := time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond))
			out.Reset = &reset
		}
	}

	if global := strings.TrimSpace(h.Get(HeaderGlobal)); global != "" && !strings.EqualFold(global, "false") {
		out.Global = true
	}

	if raw := strings.TrimSpace(h.Get(HeaderRetryAfter)); raw != "" {
		if ms, err := strconv.ParseFloat(raw, 64); err == nil && ms > 0 {
			out.RetryAfter = time.Duration(ms * float64(time.Millisecond))
		}
	}

	if raw := strings.TrimSpace(h.Get(HeaderDate)); raw != "" {
		if parsed, err := http.ParseTime(raw); err == nil {
			out.ServerTime = &parsed
		}
	}

	return out
}

// ClockOffset returns how far the local clock runs ahead of the remote one.
func ClockOffset(serverTime *time.Time, now time.Time) time.Duration {
	if serverTime == nil || serverTime.IsZero() {
		return 0
	}
	return now.Sub(*serverTime)
}

func parseIntHeader(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
