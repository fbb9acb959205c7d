package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// Keyed keeps one token bucket per key and evicts idle buckets.
// A zero or negative RPS disables limiting.
type Keyed struct {
	config  RateLimitConfig
	mu      sync.Mutex
	entries map[string]*entry
}

func NewKeyed(config RateLimitConfig) *Keyed {
	return &Keyed{
		config:  config,
		entries: make(map[string]*entry),
	}
}

func (k *Keyed) Enabled() bool {
	return k != nil && k.config.RPS > 0
}

func (k *Keyed) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		burst := k.config.Burst
		if burst < 1 {
			burst = 1
		}
		e = &entry{limiter: rate.NewLimiter(rate.Limit(k.config.RPS), burst)}
		k.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (k *Keyed) Allow(key string) bool {
	if !k.Enabled() {
		return true
	}
	return k.get(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	if !k.Enabled() {
		return nil
	}
	return k.get(key).Wait(ctx)
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) evictIdle(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > k.config.MaxAge {
			delete(k.entries, key)
		}
	}
}

// RunCleanup evicts idle buckets until ctx is cancelled.
func (k *Keyed) RunCleanup(ctx context.Context) {
	if k.config.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(k.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			k.evictIdle(now)
		}
	}
}
