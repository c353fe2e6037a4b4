package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/hrmslite/internal/reliability/circuitbreaker"
)

// Backend decides whether one more request from key fits the limit
type Backend interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Limiter is an in-process sliding window limiter. Limits are per process.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
	done    chan struct{}
	now     func() time.Time
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-l.window)
	kept := b.requests[:0]
	for _, t := range b.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.requests = kept
	b.lastSeen = now

	if len(b.requests) >= l.maxReqs {
		return false, nil
	}

	b.requests = append(b.requests, now)
	return true, nil
}

func (l *Limiter) cleanupOldBuckets() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			staleThreshold := l.now().Add(-3 * l.window)
			for key, b := range l.buckets {
				if b.lastSeen.Before(staleThreshold) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}

// Counter counts hits of key within a fixed window
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter is a fixed window limiter shared by every server process
// pointing at the same Redis.
type RedisLimiter struct {
	counter Counter
	maxReqs int
	window  time.Duration
}

func NewRedisLimiter(counter Counter, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, maxReqs: maxRequests, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	n, err := l.counter.IncrWindow(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.maxReqs), nil
}

var (
	_ Backend = (*Limiter)(nil)
	_ Backend = (*RedisLimiter)(nil)
)

// Fallback asks primary while its breaker is closed and answers from
// secondary when primary errors or the breaker is open.
type Fallback struct {
	primary   Backend
	secondary Backend
	breaker   *circuitbreaker.CircuitBreaker
}

func NewFallback(primary, secondary Backend, breaker *circuitbreaker.CircuitBreaker) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, breaker: breaker}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := f.breaker.Do(func() error {
		var err error
		allowed, err = f.primary.Allow(ctx, key)
		return err
	})
	if err == nil {
		return allowed, nil
	}
	return f.secondary.Allow(ctx, key)
}
