package publisher

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"herald/internal/constants"
	"herald/internal/storage"
	"herald/pkg/errors"
	"herald/pkg/metrics"
)

// Store adds the write side used by the management API.
type Store interface {
	Registry
	CreatePublisher(ctx context.Context, p *Publisher) error
	UpdatePublisher(ctx context.Context, p *Publisher) error
	DeletePublisher(ctx context.Context, id string) error
}

func NewStore(db *mongo.Database) Store {
	return &MongoDBRegistry{
		collection: db.Collection(constants.CollectionPublishers),
	}
}

// CreatePublisher assigns an id when none is set and stamps both times.
func (r *MongoDBRegistry) CreatePublisher(ctx context.Context, p *Publisher) (err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublishers, start, err)
	}(time.Now())

	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err = r.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict.WithDetail("id", p.ID)
		}
		return fmt.Errorf("failed to insert publisher: %w", err)
	}
	return nil
}

func (r *MongoDBRegistry) UpdatePublisher(ctx context.Context, p *Publisher) (err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublishers, start, err)
	}(time.Now())

	p.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":           p.Name,
		"enabled":        p.Enabled,
		"filter":         p.Filter,
		"transform":      p.Transform,
		"target":         p.Target,
		"updateDateTime": p.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, storage.IDFilter(p.ID), update)
	if err != nil {
		return fmt.Errorf("failed to update publisher %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return errors.ErrNotFound.WithMessage(fmt.Sprintf("publisher %s not found", p.ID))
	}
	return nil
}

func (r *MongoDBRegistry) DeletePublisher(ctx context.Context, id string) (err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublishers, start, err)
	}(time.Now())

	res, err := r.collection.DeleteOne(ctx, storage.IDFilter(id))
	if err != nil {
		return fmt.Errorf("failed to delete publisher %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return errors.ErrNotFound.WithMessage(fmt.Sprintf("publisher %s not found", id))
	}
	return nil
}
