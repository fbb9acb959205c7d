package publisher

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"herald/internal/constants"
	"herald/internal/storage"
	"herald/pkg/errors"
	"herald/pkg/metrics"
)

// Registry is the read side of the publisher store.
type Registry interface {
	// RetrievePublishers returns one page in stable order and the total
	// number of publishers.
	RetrievePublishers(ctx context.Context, skip, limit int) ([]Publisher, int, error)
	RetrievePublisher(ctx context.Context, id string) (*Publisher, error)
}

type MongoDBRegistry struct {
	collection *mongo.Collection
}

func NewRegistry(db *mongo.Database) Registry {
	return &MongoDBRegistry{
		collection: db.Collection(constants.CollectionPublishers),
	}
}

func (r *MongoDBRegistry) RetrievePublishers(ctx context.Context, skip, limit int) (publishers []Publisher, total int, err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublishers, start, err)
	}(time.Now())

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count publishers: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createDateTime", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find publishers: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &publishers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode publishers: %w", err)
	}

	return publishers, int(count), nil
}

func (r *MongoDBRegistry) RetrievePublisher(ctx context.Context, id string) (p *Publisher, err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublishers, start, err)
	}(time.Now())

	var out Publisher
	err = r.collection.FindOne(ctx, storage.IDFilter(id)).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithMessage(fmt.Sprintf("publisher %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find publisher %s: %w", id, err)
	}
	return &out, nil
}
