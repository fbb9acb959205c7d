package management

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"herald/internal/constants"
	"herald/pkg/metrics"
)

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, log *AuditLog) error
	// GetAuditLogs returns the newest entries first; an empty publisherID
	// lists every publisher.
	GetAuditLogs(ctx context.Context, publisherID string, limit int) ([]AuditLog, error)
}

type MongoDBAuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *MongoDBAuditRepository {
	return &MongoDBAuditRepository{
		collection: db.Collection(constants.CollectionPublisherAuditLogs),
	}
}

func (r *MongoDBAuditRepository) CreateAuditLog(ctx context.Context, entry *AuditLog) (err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublisherAuditLogs, start, err)
	}(time.Now())

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err = r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}
	return nil
}

func (r *MongoDBAuditRepository) GetAuditLogs(ctx context.Context, publisherID string, limit int) (logs []AuditLog, err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", constants.CollectionPublisherAuditLogs, start, err)
	}(time.Now())

	filter := bson.M{}
	if publisherID != "" {
		filter["publisherId"] = publisherID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs = []AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}
	return logs, nil
}
