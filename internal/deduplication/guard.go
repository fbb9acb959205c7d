// Package deduplication drops task envelopes the broker redelivers after
// they were already dispatched.
package deduplication

import (
	"context"
	"time"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/pkg/circuitbreaker"
	"herald/pkg/metrics"
)

type Guard struct {
	repo    Repository
	ttl     time.Duration
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

// NewGuard remembers claimed task ids for ttl. A nil breaker calls Redis
// directly.
func NewGuard(repo Repository, ttl time.Duration, breaker *circuitbreaker.Wrapper, log logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = constants.DefaultTaskDedupTTL
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Guard{repo: repo, ttl: ttl, breaker: breaker, logger: log}
}

// Claim reports whether taskID is seen for the first time. Store errors
// fail open: a task is dispatched rather than lost.
func (g *Guard) Claim(ctx context.Context, taskID string) bool {
	key := constants.CacheKeyPrefixTask + taskID

	var first bool
	claim := func() error {
		var err error
		first, err = g.repo.SetNX(ctx, key, time.Now().Unix(), g.ttl)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Do(ctx, claim)
	} else {
		err = claim()
	}

	if err != nil {
		metrics.IncTaskDeduplication("error")
		g.logger.WarnwCtx(ctx, "Task deduplication unavailable, dispatching anyway",
			"task_id", taskID,
			"error", err,
		)
		return true
	}
	if !first {
		metrics.IncTaskDeduplication("duplicate")
		return false
	}
	metrics.IncTaskDeduplication("first")
	return true
}

// Release forgets a claim so the task can run again, e.g. when it is replayed
// from the DLQ after an aborted dispatch.
func (g *Guard) Release(ctx context.Context, taskID string) {
	key := constants.CacheKeyPrefixTask + taskID
	release := func() error {
		return g.repo.Delete(ctx, key)
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Do(ctx, release)
	} else {
		err = release()
	}
	if err != nil {
		g.logger.WarnwCtx(ctx, "Failed to release task claim",
			"task_id", taskID,
			"error", err,
		)
	}
}
