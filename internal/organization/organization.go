package organization

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"herald/internal/constants"
	"herald/internal/storage"
	"herald/pkg/errors"
	"herald/pkg/metrics"
)

type Organization struct {
	ID            string   `json:"id" bson:"_id,omitempty"`
	Name          string   `json:"name" bson:"name"`
	DeploymentIDs []string `json:"deploymentIds" bson:"deploymentIds"`
}

type Repository interface {
	RetrieveOrganization(ctx context.Context, id string) (*Organization, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *MongoDBRepository {
	return &MongoDBRepository{
		collection: db.Collection(constants.CollectionOrganizations),
	}
}

func (r *MongoDBRepository) RetrieveOrganization(ctx context.Context, id string) (org *Organization, err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionOrganizations, start, err)
	}(time.Now())

	opts := options.FindOne().SetProjection(map[string]int{"name": 1, "deploymentIds": 1})

	var out Organization
	err = r.collection.FindOne(ctx, storage.IDFilter(id), opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithMessage(fmt.Sprintf("organization %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization %s: %w", id, err)
	}
	return &out, nil
}
