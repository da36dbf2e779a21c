// Package ratelimit implements a per-(user_id, endpoint) token-bucket
// limiter: process-local and in-memory, never persisted or shared across
// pods.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaysocial/orchestrator/pkg/config"
)

// Limiter holds one golang.org/x/time/rate.Limiter per (user_id, endpoint)
// pair, created lazily on first use and swept periodically so long-idle
// buckets don't accumulate forever.
type Limiter struct {
	cfg config.RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// New builds a Limiter from the given rate-limit configuration.
func New(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{cfg: cfg, buckets: make(map[string]*bucket)}
	if cfg.CleanupIntervalMin > 0 {
		go l.runCleanup(time.Duration(cfg.CleanupIntervalMin * float64(time.Minute)))
	}
	return l
}

// Allow reports whether a call for (userID, endpoint) may proceed now,
// consuming one token from that pair's bucket if so.
func (l *Limiter) Allow(userID, endpoint string) bool {
	return l.bucketFor(userID, endpoint).Allow()
}

func (l *Limiter) bucketFor(userID, endpoint string) *rate.Limiter {
	key := userID + "\x00" + endpoint

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		perSecond := rate.Limit(float64(l.cfg.RequestsPerMinute) / 60.0)
		b = &bucket{limiter: rate.NewLimiter(perSecond, l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.lastSeenAt = time.Now()
	return b.limiter
}

// runCleanup periodically evicts buckets that have not been touched in over
// ten cleanup intervals, bounding memory for a long-running process with a
// large, churning set of callers.
func (l *Limiter) runCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * interval)
		l.mu.Lock()
		for key, b := range l.buckets {
			if b.lastSeenAt.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
