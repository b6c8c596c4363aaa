package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a token bucket rate limiter. Tokens refill continuously at
// the configured rate up to the burst size.
type TokenBucket struct {
	rate       float64
	burst      float64
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a limiter allowing rate operations per second with
// the given burst size
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow reports whether a single operation may proceed
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN reports whether n operations may proceed
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.lastUpdate).Seconds() * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
	tb.lastUpdate = now

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Limit returns the refill rate in operations per second
func (tb *TokenBucket) Limit() float64 {
	return tb.rate
}

// Burst returns the maximum burst size
func (tb *TokenBucket) Burst() int {
	return int(tb.burst)
}
