package deduplication

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"herald/internal/logger"
	"herald/pkg/circuitbreaker"
)

func newRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRepository(client), mr
}

func TestGuard_ClaimsOnce(t *testing.T) {
	repo, mr := newRedis(t)
	g := NewGuard(repo, time.Minute, nil, logger.NopLogger())
	ctx := context.Background()

	assert.True(t, g.Claim(ctx, "task-1"))
	assert.False(t, g.Claim(ctx, "task-1"))
	assert.True(t, g.Claim(ctx, "task-2"))
	assert.True(t, mr.Exists("dispatch:task:task-1"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, g.Claim(ctx, "task-1"))
}

func TestGuard_FailsOpen(t *testing.T) {
	repo, mr := newRedis(t)
	g := NewGuard(repo, time.Minute, nil, logger.NopLogger())
	mr.Close()

	assert.True(t, g.Claim(context.Background(), "task-1"))
	assert.True(t, g.Claim(context.Background(), "task-1"))
}

type failingRepo struct{ calls int }

func (r *failingRepo) SetNX(context.Context, string, interface{}, time.Duration) (bool, error) {
	r.calls++
	return false, stderrors.New("connection refused")
}

func (r *failingRepo) Delete(context.Context, string) error {
	r.calls++
	return stderrors.New("connection refused")
}

func TestGuard_BreakerStopsCallingStore(t *testing.T) {
	repo := &failingRepo{}
	cfg := circuitbreaker.DefaultConfig("task-dedup-test")
	cfg.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 }
	g := NewGuard(repo, time.Minute, circuitbreaker.NewWrapper(cfg), logger.NopLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, g.Claim(ctx, "task-1"))
	}
	assert.Equal(t, 2, repo.calls)
}

func TestGuard_ReleaseAllowsReclaim(t *testing.T) {
	repo, mr := newRedis(t)
	g := NewGuard(repo, time.Minute, nil, logger.NopLogger())
	ctx := context.Background()

	assert.True(t, g.Claim(ctx, "task-1"))
	g.Release(ctx, "task-1")
	assert.False(t, mr.Exists("dispatch:task:task-1"))
	assert.True(t, g.Claim(ctx, "task-1"))
}

func TestGuard_ReleaseToleratesStoreErrors(t *testing.T) {
	repo := &failingRepo{}
	g := NewGuard(repo, time.Minute, nil, logger.NopLogger())

	assert.NotPanics(t, func() { g.Release(context.Background(), "task-1") })
	assert.Equal(t, 1, repo.calls)
}
