package usermeta

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"herald/internal/constants"
	"herald/internal/storage"
	"herald/pkg/metrics"
	"herald/pkg/models"
)

const (
	FieldConsent  = "consent"
	FieldEConsent = "econsent"
)

// Source builds the user sub-object attached to primitives: the user's
// profile plus the latest consent and econsent log for the deployment.
type Source interface {
	UserMetadata(ctx context.Context, deploymentID string, userIDs []string, includeNull bool) (map[string]map[string]interface{}, error)
}

// Profile fields never forwarded to publishers.
var excludedUserFields = []string{
	"roles",
	"recentModuleResults",
	"stats",
	"unseenFlags",
	"recentFlags",
	"badges",
	"personalDocuments",
	"onfidoApplicantId",
}

type MongoDBSource struct {
	db *mongo.Database
}

func NewSource(db *mongo.Database) *MongoDBSource {
	return &MongoDBSource{db: db}
}

type deploymentConsents struct {
	Consent *struct {
		ID string `bson:"id"`
	} `bson:"consent"`
	EConsent *struct {
		ID string `bson:"id"`
	} `bson:"econsent"`
}

func (s *MongoDBSource) UserMetadata(ctx context.Context, deploymentID string, userIDs []string, includeNull bool) (map[string]map[string]interface{}, error) {
	if len(userIDs) == 0 {
		return map[string]map[string]interface{}{}, nil
	}

	users, err := s.findAll(ctx, constants.CollectionUsers, storage.IDsFilter("_id", userIDs), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	var consents, econsents map[string]map[string]interface{}
	deployment, err := s.deployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if deployment != nil && deployment.Consent != nil {
		consents, err = s.logsByUser(ctx, constants.CollectionConsentLogs, "consentId", deployment.Consent.ID, userIDs)
		if err != nil {
			return nil, err
		}
	}
	if deployment != nil && deployment.EConsent != nil {
		econsents, err = s.logsByUser(ctx, constants.CollectionEConsentLogs, "econsentId", deployment.EConsent.ID, userIDs)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]map[string]interface{}, len(users))
	for _, user := range users {
		id, _ := user["id"].(string)
		for _, f := range excludedUserFields {
			delete(user, f)
		}
		user[FieldConsent] = nilIfMissing(consents, id)
		user[FieldEConsent] = nilIfMissing(econsents, id)
		if !includeNull {
			models.PruneNil(user)
		}
		out[id] = user
	}
	return out, nil
}

func nilIfMissing(logs map[string]map[string]interface{}, userID string) interface{} {
	if log, ok := logs[userID]; ok {
		return log
	}
	return nil
}

func (s *MongoDBSource) deployment(ctx context.Context, id string) (*deploymentConsents, error) {
	var out deploymentConsents
	err := s.db.Collection(constants.CollectionDeployments).
		FindOne(ctx, storage.IDFilter(id), options.FindOne().SetProjection(bson.M{"consent.id": 1, "econsent.id": 1})).
		Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment %s: %w", id, err)
	}
	return &out, nil
}

// logsByUser returns the most recent log per user, without its identifiers.
func (s *MongoDBSource) logsByUser(ctx context.Context, collection, parentField, parentID string, userIDs []string) (map[string]map[string]interface{}, error) {
	filter := storage.IDsFilter(models.PrimitiveFieldUserID, userIDs)
	for k, v := range storage.IDsFilter(parentField, []string{parentID}) {
		filter[k] = v
	}
	opts := options.Find().SetSort(bson.D{{Key: "createDateTime", Value: 1}})

	logs, err := s.findAll(ctx, collection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	out := make(map[string]map[string]interface{}, len(logs))
	for _, log := range logs {
		userID, _ := log[models.PrimitiveFieldUserID].(string)
		delete(log, "id")
		delete(log, models.PrimitiveFieldUserID)
		delete(log, parentField)
		out[userID] = log
	}
	return out, nil
}

func (s *MongoDBSource) findAll(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions) (docs []map[string]interface{}, err error) {
	defer func(start time.Time) {
		metrics.ObserveQuery("mongodb", collection, start, err)
	}(time.Now())

	findOpts := []*options.FindOptions{}
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs = make([]map[string]interface{}, 0, len(raw))
	for _, doc := range raw {
		docs = append(docs, storage.Normalize(doc))
	}
	return docs, nil
}
