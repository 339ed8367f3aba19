package rest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func waitDone(t *testing.T, done <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("queued call did not complete in time")
	}
}

func TestApplyHeadersClockSkew(t *testing.T) {
	limiter := NewRatelimiter()
	b := limiter.Bucket("/channels/1/messages")

	// Local clock runs an hour ahead of the remote.
	now := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	serverTime := now.Add(-time.Hour)
	limiter.ApplyHeaders(b, RateLimitHeaders{
		Remaining:  intPtr(0),
		Limit:      intPtr(5),
		Reset:      timePtr(serverTime.Add(2 * time.Second)),
		ServerTime: timePtr(serverTime),
	}, now, false)

	state := b.Snapshot()
	assert.Equal(t, 0, state.Remaining)
	assert.Equal(t, 5, state.Limit)
	assert.Equal(t, now.Add(2*time.Second), state.ResetAt)
}

func TestApplyHeadersDefaultsRemainingToOne(t *testing.T) {
	limiter := NewRatelimiter()
	b := limiter.Bucket("/gateway")

	now := time.Now()
	limiter.ApplyHeaders(b, RateLimitHeaders{Remaining: intPtr(0), Limit: intPtr(2)}, now, false)
	require.Equal(t, 0, b.Snapshot().Remaining)

	limiter.ApplyHeaders(b, RateLimitHeaders{}, now, false)
	state := b.Snapshot()
	assert.Equal(t, 1, state.Remaining)
	assert.Equal(t, 2, state.Limit, "absent limit header leaves limit untouched")
}

func TestApplyHeadersClampsNegativeRemaining(t *testing.T) {
	limiter := NewRatelimiter()
	b := limiter.Bucket("/gateway")
	limiter.ApplyHeaders(b, RateLimitHeaders{Remaining: intPtr(-3)}, time.Now(), false)
	assert.Equal(t, 0, b.Snapshot().Remaining)
}

func TestApplyHeadersReactionFloor(t *testing.T) {
	limiter := NewRatelimiter()
	b := limiter.Bucket("/channels/1/messages/:id/reactions/:id/@me")

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimitHeaders{
		Remaining:  intPtr(0),
		Reset:      timePtr(now.Add(50 * time.Millisecond)),
		ServerTime: timePtr(now),
	}

	limiter.ApplyHeaders(b, h, now, true)
	assert.Equal(t, now.Add(DefaultReactionFloor), b.Snapshot().ResetAt)

	limiter.ApplyHeaders(b, h, now, false)
	assert.Equal(t, now.Add(50*time.Millisecond), b.Snapshot().ResetAt)

	h.Reset = timePtr(now.Add(time.Second))
	limiter.ApplyHeaders(b, h, now, true)
	assert.Equal(t, now.Add(time.Second), b.Snapshot().ResetAt, "larger header values win over the floor")
}

func TestApplyHeadersGlobal(t *testing.T) {
	limiter := NewRatelimiter()
	b := limiter.Bucket("/gateway")

	now := time.Now()
	limiter.ApplyHeaders(b, RateLimitHeaders{Global: true, RetryAfter: 750 * time.Millisecond}, now, false)

	lock := limiter.GlobalLockState()
	assert.True(t, lock.Active)
	assert.Equal(t, now.Add(750*time.Millisecond), lock.ResetAt)
}

func TestBucketCreationIsAtomic(t *testing.T) {
	limiter := NewRatelimiter()

	var wg sync.WaitGroup
	seen := make([]*Bucket, 64)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = limiter.Bucket("/channels/1/messages")
		}(i)
	}
	wg.Wait()

	for _, b := range seen {
		assert.Same(t, seen[0], b)
	}
	assert.Len(t, limiter.Buckets(), 1)
}

func TestQueueRunsFIFOWithoutOverlap(t *testing.T) {
	limiter := NewRatelimiter()

	var (
		mu       sync.Mutex
		order    []int
		inFlight atomic.Int32
		overlap  atomic.Bool
	)

	const calls = 10
	dones := make([]<-chan struct{}, 0, calls)
	for i := 0; i < calls; i++ {
		dones = append(dones, limiter.Queue(func(*Bucket) {
			if inFlight.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			inFlight.Add(-1)
		}, "/channels/123456789012345678/messages", "POST"))
	}
	for _, done := range dones {
		waitDone(t, done, 5*time.Second)
	}

	assert.False(t, overlap.Load(), "two calls on one bucket ran concurrently")
	expected := make([]int, calls)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, order)
}

func TestQueueDrainsSeparateBucketsConcurrently(t *testing.T) {
	limiter := NewRatelimiter()

	release := make(chan struct{})
	started := make(chan string, 2)

	a := limiter.Queue(func(b *Bucket) {
		started <- b.Key
		<-release
	}, "/channels/111111111111111111/messages", "POST")
	b := limiter.Queue(func(b *Bucket) {
		started <- b.Key
		<-release
	}, "/channels/222222222222222222/messages", "POST")

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("independent buckets did not start concurrently")
		}
	}
	close(release)
	waitDone(t, a, time.Second)
	waitDone(t, b, time.Second)
}

func TestQueueWaitsForBucketReset(t *testing.T) {
	limiter := NewRatelimiter()
	path := "/channels/123456789012345678/messages"
	b := limiter.Bucket("/channels/123456789012345678/messages")

	now := time.Now()
	limiter.ApplyHeaders(b, RateLimitHeaders{
		Remaining:  intPtr(0),
		Reset:      timePtr(now.Add(300 * time.Millisecond)),
		ServerTime: timePtr(now),
	}, now, false)

	var ranAt time.Time
	done := limiter.Queue(func(*Bucket) { ranAt = time.Now() }, path, "POST")
	waitDone(t, done, 3*time.Second)

	assert.GreaterOrEqual(t, ranAt.Sub(now), 300*time.Millisecond)
}

func TestQueueWaitsForGlobalLock(t *testing.T) {
	limiter := NewRatelimiter()
	other := limiter.Bucket("/gateway")

	now := time.Now()
	limiter.ApplyHeaders(other, RateLimitHeaders{Global: true, RetryAfter: 300 * time.Millisecond}, now, false)

	// This bucket has budget left but must still honour the lockout.
	b := limiter.Bucket("/channels/123456789012345678/messages")
	limiter.ApplyHeaders(b, RateLimitHeaders{Remaining: intPtr(5)}, now, false)

	var ranAt time.Time
	done := limiter.Queue(func(*Bucket) { ranAt = time.Now() }, "/channels/123456789012345678/messages", "POST")
	waitDone(t, done, 3*time.Second)

	assert.GreaterOrEqual(t, ranAt.Sub(now), 300*time.Millisecond)
}

func TestQueueRestartsDrainAfterIdle(t *testing.T) {
	limiter := NewRatelimiter()

	first := limiter.Queue(func(*Bucket) {}, "/gateway", "GET")
	waitDone(t, first, time.Second)
	require.Eventually(t, func() bool {
		return !limiter.Bucket("/gateway").Snapshot().Draining
	}, time.Second, 5*time.Millisecond)

	second := limiter.Queue(func(*Bucket) {}, "/gateway", "GET")
	waitDone(t, second, time.Second)
}

func TestGlobalRatePacesDispatch(t *testing.T) {
	limiter := NewRatelimiter(WithGlobalRate(20, 1))

	start := time.Now()
	var last <-chan struct{}
	for i := 0; i < 3; i++ {
		last = limiter.Queue(func(*Bucket) {}, "/gateway", "GET")
	}
	waitDone(t, last, 2*time.Second)

	// Burst of one at 20/s: the third call goes out no earlier than 100ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestGlobalRateClampsBurst(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	limiter := NewRatelimiter(WithGlobalRate(50, 0), WithRatelimiterLogger(zap.New(core)))

	var last <-chan struct{}
	for i := 0; i < 2; i++ {
		last = limiter.Queue(func(*Bucket) {}, "/gateway", "GET")
	}
	waitDone(t, last, 2*time.Second)

	assert.Zero(t, logs.FilterMessage("Pacer wait failed").Len())
}
