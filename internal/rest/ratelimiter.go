package rest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/snowtransfer/snowtransfer/internal/endpoints"
)

// DefaultReactionFloor is the minimum reset interval applied to reaction
// routes; the remote allows one reaction per 250ms regardless of headers.
const DefaultReactionFloor = 250 * time.Millisecond

// Ratelimiter paces calls per bucket so that the aggregate rate stays within
// the budget advertised by the remote. Calls sharing a bucket run strictly
// one at a time in submission order; separate buckets drain concurrently.
type Ratelimiter struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
	global  GlobalLock

	reactionFloor time.Duration
	pacer         *rate.Limiter
	clock         func() time.Time
	logger        Logger
	metrics       *Metrics
}

// RatelimiterOption configures a Ratelimiter.
type RatelimiterOption func(*Ratelimiter)

// WithReactionFloor overrides DefaultReactionFloor.
func WithReactionFloor(d time.Duration) RatelimiterOption {
	return func(r *Ratelimiter) {
		if d >= 0 {
			r.reactionFloor = d
		}
	}
}

// WithGlobalRate caps outbound dispatch across all buckets at rps calls per
// second. Zero or negative disables the cap.
func WithGlobalRate(rps float64, burst int) RatelimiterOption {
	return func(r *Ratelimiter) {
		if rps <= 0 {
			r.pacer = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.pacer = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock replaces time.Now; used by tests.
func WithClock(clock func() time.Time) RatelimiterOption {
	return func(r *Ratelimiter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRatelimiterLogger sets the logger used for pacing decisions.
func WithRatelimiterLogger(logger Logger) RatelimiterOption {
	return func(r *Ratelimiter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRatelimiterMetrics records queue waits and bucket state.
func WithRatelimiterMetrics(m *Metrics) RatelimiterOption {
	return func(r *Ratelimiter) {
		r.metrics = m
	}
}

// NewRatelimiter returns an empty ratelimiter.
func NewRatelimiter(opts ...RatelimiterOption) *Ratelimiter {
	r := &Ratelimiter{
		buckets:       make(map[string]*Bucket),
		reactionFloor: DefaultReactionFloor,
		clock:         time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Queue submits call under the bucket resolved from path and method. The
// returned channel is closed once call has returned.
func (r *Ratelimiter) Queue(call func(*Bucket), path, method string) <-chan struct{} {
	route := endpoints.Resolve(path, method)
	b := r.bucket(route.BucketKey)

	pending := &pendingCall{run: call, done: make(chan struct{})}
	if b.enqueue(pending) {
		go r.drain(b)
	}
	return pending.done
}

// Bucket returns the bucket for key, creating it if needed.
func (r *Ratelimiter) Bucket(key string) *Bucket {
	return r.bucket(key)
}

func (r *Ratelimiter) bucket(key string) *Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[key]
	if !ok {
		b = newBucket(key)
		r.buckets[key] = b
	}
	return b
}

// Buckets returns a snapshot of every known bucket sorted by key.
func (r *Ratelimiter) Buckets() []BucketState {
	r.mu.Lock()
	all := make([]*Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		all = append(all, b)
	}
	r.mu.Unlock()

	out := make([]BucketState, 0, len(all))
	for _, b := range all {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GlobalLockState returns a copy of the global lockout.
func (r *Ratelimiter) GlobalLockState() GlobalLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global
}

// ApplyHeaders updates b (and possibly the global lock) from the rate-limit
// headers of a response received at now.
//
// The reset header is a remote-clock timestamp. It is shifted by the offset
// between the remote Date header and now so that the wait equals the
// interval the remote reported, whatever the local clock skew.
func (r *Ratelimiter) ApplyHeaders(b *Bucket, h RateLimitHeaders, now time.Time, reactionRoute bool) {
	if h.Global {
		r.mu.Lock()
		r.global = GlobalLock{Active: true, ResetAt: now.Add(h.RetryAfter)}
		r.mu.Unlock()
		r.logger.Warn("Global rate limit hit",
			zap.String("bucket", b.Key),
			zap.Duration("retry_after", h.RetryAfter))
		r.metrics.globalLockout()
	}

	b.mu.Lock()
	if h.Remaining != nil {
		b.remaining = max(*h.Remaining, 0)
	} else {
		b.remaining = 1
	}
	if h.Limit != nil {
		b.limit = *h.Limit
	}
	if h.Reset != nil {
		resetAt := h.Reset.Add(ClockOffset(h.ServerTime, now))
		if reactionRoute && resetAt.Sub(now) < r.reactionFloor {
			resetAt = now.Add(r.reactionFloor)
		}
		b.resetAt = resetAt
	}
	remaining := b.remaining
	b.mu.Unlock()

	r.metrics.setRemaining(b.Key, remaining)
}

// drain runs queued calls for b until its queue is empty. At most one drain
// loop is active per bucket; enqueue hands off the flag.
func (r *Ratelimiter) drain(b *Bucket) {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}

		now := r.clock()
		if wait := r.GlobalLockState().wait(now); wait > 0 {
			b.mu.Unlock()
			r.pause(b.Key, "global", wait)
			continue
		}
		if b.remaining <= 0 && now.Before(b.resetAt) {
			wait := b.resetAt.Sub(now)
			b.mu.Unlock()
			r.pause(b.Key, "bucket", wait)
			continue
		}

		call := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.mu.Unlock()

		if r.pacer != nil {
			start := time.Now()
			// burst is at least 1 and the context never ends, so Wait only
			// fails if the limiter is misconfigured.
			if err := r.pacer.Wait(context.Background()); err != nil {
				r.logger.Debug("Pacer wait failed", zap.String("bucket", b.Key), zap.Error(err))
			}
			r.metrics.observeWait(b.Key, "pacer", time.Since(start))
		}

		call.run(b)
		close(call.done)
	}
}

func (r *Ratelimiter) pause(key, reason string, wait time.Duration) {
	r.logger.Debug("Bucket waiting",
		zap.String("bucket", key),
		zap.String("reason", reason),
		zap.Duration("wait", wait))
	r.metrics.observeWait(key, reason, wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	<-timer.C
}
