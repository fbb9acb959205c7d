package publisher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"herald/internal/constants"
	"herald/internal/testutil"
	"herald/pkg/errors"
)

func TestMongoDBRegistry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := testutil.Mongo(t)
	coll := db.Collection(constants.CollectionPublishers)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := coll.InsertOne(ctx, Publisher{
			ID:        fmt.Sprintf("pub-%02d", i),
			Name:      fmt.Sprintf("publisher %d", i),
			Enabled:   i%2 == 0,
			Filter:    Filter{EventType: EventTypeModuleResult, ListenerType: ListenerGlobal},
			Target:    Target{PublisherType: TargetWebhook, Retry: 3, Webhook: &WebhookConfig{Endpoint: "http://example.test", AuthType: WebhookAuthNone}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	oid := primitive.NewObjectID()
	_, err := coll.InsertOne(ctx, bson.M{
		"_id":            oid,
		"name":           "legacy",
		"enabled":        true,
		"createDateTime": base.Add(time.Hour),
		"target":         bson.M{"publisherType": "KAFKA", "retry": 1},
	})
	require.NoError(t, err)

	reg := NewRegistry(db)

	page, total, err := reg.RetrievePublishers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	require.Len(t, page, 10)
	assert.Equal(t, "pub-00", page[0].ID)
	assert.Equal(t, "http://example.test", page[0].Target.Webhook.Endpoint)

	page, _, err = reg.RetrievePublishers(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, oid.Hex(), page[2].ID)

	legacy, err := reg.RetrievePublisher(ctx, oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, TargetKafka, legacy.Target.PublisherType)

	_, err = reg.RetrievePublisher(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestTargetAttempts(t *testing.T) {
	assert.Equal(t, 1, Target{}.Attempts(0))
	assert.Equal(t, 1, Target{Retry: -2}.Attempts(0))
	assert.Equal(t, 4, Target{}.Attempts(4))
	assert.Equal(t, 3, Target{Retry: 3}.Attempts(4))
}

func TestMongoDBStore_Writes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := NewStore(testutil.Mongo(t))

	p := &Publisher{
		Name:    "writer",
		Enabled: true,
		Filter:  Filter{EventType: EventTypeModuleResult, ListenerType: ListenerGlobal},
		Target:  Target{PublisherType: TargetWebhook, Webhook: &WebhookConfig{Endpoint: "http://example.test"}},
	}
	require.NoError(t, store.CreatePublisher(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	p.Name = "renamed"
	p.Enabled = false
	require.NoError(t, store.UpdatePublisher(ctx, p))

	got, err := store.RetrievePublisher(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.Enabled)
	assert.True(t, errors.IsNotFound(store.UpdatePublisher(ctx, &Publisher{ID: "missing"})))

	dup := *p
	assert.Equal(t, errors.ErrConflict.Code, errors.Code(store.CreatePublisher(ctx, &dup)))

	require.NoError(t, store.DeletePublisher(ctx, p.ID))
	assert.True(t, errors.IsNotFound(store.DeletePublisher(ctx, p.ID)))
}
