package management

import (
	"time"

	"herald/internal/publisher"
)

type CreatePublisherRequest struct {
	Name      string              `json:"name" binding:"required"`
	Enabled   *bool               `json:"enabled"`
	Filter    publisher.Filter    `json:"filter"`
	Transform publisher.Transform `json:"transform"`
	Target    publisher.Target    `json:"target"`
}

// UpdatePublisherRequest replaces whole sections; nil sections are kept.
type UpdatePublisherRequest struct {
	Name      *string              `json:"name"`
	Enabled   *bool                `json:"enabled"`
	Filter    *publisher.Filter    `json:"filter"`
	Transform *publisher.Transform `json:"transform"`
	Target    *publisher.Target    `json:"target"`
}

type ListPublishersResponse struct {
	Items []publisher.Publisher `json:"items"`
	Total int                   `json:"total"`
	Skip  int                   `json:"skip"`
	Limit int                   `json:"limit"`
}

type AuditLog struct {
	ID          string                 `json:"id" bson:"_id"`
	PublisherID string                 `json:"publisher_id" bson:"publisherId"`
	Action      string                 `json:"action" bson:"action"`
	OldValue    map[string]interface{} `json:"old_value,omitempty" bson:"oldValue,omitempty"`
	NewValue    map[string]interface{} `json:"new_value,omitempty" bson:"newValue,omitempty"`
	ChangedBy   string                 `json:"changed_by" bson:"changedBy"`
	Timestamp   time.Time              `json:"timestamp" bson:"timestamp"`
}

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
