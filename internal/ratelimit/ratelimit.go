// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
// It supports both non-blocking (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a key's limiter may go unused before the cleanup
// pass drops it. Keys here are client IPs, so the map would otherwise
// grow with every device and roaming address that ever synced.
const idleTTL = 10 * time.Minute

// keyedLimiter pairs a limiter with the last time it was used.
// lastSeen is atomic so the read fast path never takes the write lock.
type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter.
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*keyedLimiter
	limit    rate.Limit
	burst    int

	// Cleanup
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*keyedLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}

	go krl.cleanup()

	return krl
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking. Use for inbound request protection.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until a request for the given key is allowed or context is canceled.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// getLimiter returns the limiter for a key, creating one if needed.
func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	// Fast path: read lock
	krl.mu.RLock()
	kl, exists := krl.limiters[key]
	krl.mu.RUnlock()

	if exists {
		kl.lastSeen.Store(now)
		return kl.limiter
	}

	// Slow path: write lock to create
	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Double-check after acquiring write lock
	if kl, exists = krl.limiters[key]; exists {
		kl.lastSeen.Store(now)
		return kl.limiter
	}

	kl = &keyedLimiter{
		limiter: rate.NewLimiter(krl.limit, krl.burst),
	}
	kl.lastSeen.Store(now)
	krl.limiters[key] = kl
	return kl.limiter
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

// cleanup periodically drops limiters that have not been used within
// idleTTL. A dropped key simply gets a fresh bucket on its next request.
func (krl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case now := <-ticker.C:
			krl.sweep(now)
		}
	}
}

// sweep removes limiters idle past idleTTL as of now.
func (krl *KeyedRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-idleTTL).UnixNano()
	krl.mu.Lock()
	defer krl.mu.Unlock()
	for key, kl := range krl.limiters {
		if kl.lastSeen.Load() < cutoff {
			delete(krl.limiters, key)
		}
	}
}
