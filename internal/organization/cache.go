package organization

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/pkg/metrics"
)

// CachedRepository is a read-through Redis cache in front of another
// Repository. Redis failures fall through to the wrapped repository.
type CachedRepository struct {
	next   Repository
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRepository(next Repository, client redis.UniversalClient, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(id string) string {
	return constants.CacheKeyPrefixOrganization + id
}

func (r *CachedRepository) RetrieveOrganization(ctx context.Context, id string) (*Organization, error) {
	raw, err := r.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var org Organization
		if jsonErr := json.Unmarshal(raw, &org); jsonErr == nil {
			metrics.IncOrganizationCache("hit")
			return &org, nil
		}
		metrics.IncOrganizationCache("error")
	case err == redis.Nil:
		metrics.IncOrganizationCache("miss")
	default:
		metrics.IncOrganizationCache("error")
		r.logger.WarnwCtx(ctx, "Organization cache read failed",
			"organization_id", id,
			"error", err,
		)
	}

	org, err := r.next.RetrieveOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	if body, jsonErr := json.Marshal(org); jsonErr == nil {
		if setErr := r.client.Set(ctx, cacheKey(id), body, r.ttl).Err(); setErr != nil {
			r.logger.WarnwCtx(ctx, "Organization cache write failed",
				"organization_id", id,
				"error", setErr,
			)
		}
	}

	return org, nil
}
