package organization

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/logger"
	"herald/pkg/errors"
)

type countingRepository struct {
	orgs  map[string]*Organization
	calls int
}

func (r *countingRepository) RetrieveOrganization(_ context.Context, id string) (*Organization, error) {
	r.calls++
	org, ok := r.orgs[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return org, nil
}

func newCache(t *testing.T) (*CachedRepository, *countingRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := &countingRepository{orgs: map[string]*Organization{
		"org-1": {ID: "org-1", Name: "Acme", DeploymentIDs: []string{"D1", "D2"}},
	}}
	return NewCachedRepository(backing, client, time.Minute, logger.NopLogger()), backing, mr
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	repo, backing, mr := newCache(t)
	ctx := context.Background()

	org, err := repo.RetrieveOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "D2"}, org.DeploymentIDs)
	assert.Equal(t, 1, backing.calls)
	assert.True(t, mr.Exists("org:deployments:org-1"))

	org, err = repo.RetrieveOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, 1, backing.calls)
}

func TestCachedRepository_TTLExpiry(t *testing.T) {
	repo, backing, mr := newCache(t)
	ctx := context.Background()

	_, err := repo.RetrieveOrganization(ctx, "org-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = repo.RetrieveOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedRepository_RedisDownFallsThrough(t *testing.T) {
	repo, backing, mr := newCache(t)
	mr.Close()

	org, err := repo.RetrieveOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, 1, backing.calls)
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	repo, backing, mr := newCache(t)

	_, err := repo.RetrieveOrganization(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, mr.Exists("org:deployments:missing"))
	assert.Equal(t, 1, backing.calls)
}
