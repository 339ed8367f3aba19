package rest

import (
	"sync"
	"time"
)

// Bucket is the rate-limit accounting for one route template together with
// the calls waiting to go out on it.
//
// remaining, limit and resetAt are written only by Ratelimiter.ApplyHeaders.
type Bucket struct {
	Key string

	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   time.Time
	queue     []*pendingCall
	draining  bool
}

// BucketState is a point-in-time copy of a bucket.
type BucketState struct {
	Key       string    `json:"key"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
	Queued    int       `json:"queued"`
	Draining  bool      `json:"draining"`
}

type pendingCall struct {
	run  func(*Bucket)
	done chan struct{}
}

func newBucket(key string) *Bucket {
	// Optimistic until the first response seeds real values.
	return &Bucket{
		Key:       key,
		remaining: 1,
		limit:     1,
	}
}

// Snapshot returns the current state of the bucket.
func (b *Bucket) Snapshot() BucketState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BucketState{
		Key:       b.Key,
		Remaining: b.remaining,
		Limit:     b.limit,
		ResetAt:   b.resetAt,
		Queued:    len(b.queue),
		Draining:  b.draining,
	}
}

// enqueue appends call and reports whether the caller must start a drain
// loop for this bucket.
func (b *Bucket) enqueue(call *pendingCall) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, call)
	if b.draining {
		return false
	}
	b.draining = true
	return true
}

// GlobalLock is the service-wide lockout shared by every bucket.
type GlobalLock struct {
	Active  bool      `json:"active"`
	ResetAt time.Time `json:"reset_at"`
}

func (g GlobalLock) wait(now time.Time) time.Duration {
	if !g.Active || !now.Before(g.ResetAt) {
		return 0
	}
	return g.ResetAt.Sub(now)
}
