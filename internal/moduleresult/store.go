package moduleresult

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"herald/internal/storage"
	"herald/pkg/errors"
	"herald/pkg/metrics"
	"herald/pkg/models"
)

// Store reads persisted primitives. Each primitive type lives in its own
// collection named after the type.
type Store interface {
	RetrievePrimitive(ctx context.Context, userID, typeName, id string) (models.Primitive, error)
}

type MongoDBStore struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *MongoDBStore {
	return &MongoDBStore{db: db}
}

func (s *MongoDBStore) RetrievePrimitive(ctx context.Context, userID, typeName, id string) (p models.Primitive, err error) {
	if typeName == "" {
		return nil, errors.ErrValidation.WithMessage("primitive type name is required")
	}

	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", typeName, start, err)
	}(time.Now())

	filter := storage.IDFilter(id)
	for k, v := range storage.IDsFilter(models.PrimitiveFieldUserID, []string{userID}) {
		filter[k] = v
	}

	var doc bson.M
	err = s.db.Collection(typeName).FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.
			WithMessage(fmt.Sprintf("primitive %s/%s not found for user %s", typeName, id, userID)).
			AsFatal()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find primitive %s/%s: %w", typeName, id, err)
	}

	return models.Primitive(storage.Normalize(doc)), nil
}
