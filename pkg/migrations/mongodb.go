package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"herald/internal/constants"
)

// Indexes lists the indexes the dispatch read paths rely on, per collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		constants.CollectionPublishers: {
			{
				Keys:    bson.D{{Key: "createDateTime", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_publishers_page_order"),
			},
			{
				Keys:    bson.D{{Key: "enabled", Value: 1}},
				Options: options.Index().SetName("idx_publishers_enabled"),
			},
		},
		constants.CollectionPublisherAuditLogs: {
			{
				Keys:    bson.D{{Key: "publisherId", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_publisher_audit_logs_publisher_time"),
			},
		},
		constants.CollectionConsentLogs: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "consentId", Value: 1}},
				Options: options.Index().SetName("idx_consent_logs_user_consent"),
			},
		},
		constants.CollectionEConsentLogs: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "econsentId", Value: 1}},
				Options: options.Index().SetName("idx_econsent_logs_user_econsent"),
			},
		},
	}
}

// EnsureMongoIndexes creates the dispatch indexes; existing ones are left alone.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, indexes := range Indexes() {
		_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
