package publisher

import (
	"time"
)

type EventType string

const (
	EventTypePing         EventType = "PING"
	EventTypeModuleResult EventType = "MODULE_RESULT"
)

type ListenerType string

const (
	ListenerDeploymentIDs   ListenerType = "DEPLOYMENT_IDS"
	ListenerOrganizationIDs ListenerType = "ORGANIZATION_IDS"
	ListenerGlobal          ListenerType = "GLOBAL"
)

type TargetType string

const (
	TargetWebhook TargetType = "WEBHOOK"
	TargetKafka   TargetType = "KAFKA"
	TargetGCPFHIR TargetType = "GCPFHIR"
)

type WebhookAuthType string

const (
	WebhookAuthNone   WebhookAuthType = "NONE"
	WebhookAuthBasic  WebhookAuthType = "BASIC"
	WebhookAuthBearer WebhookAuthType = "BEARER"
)

type KafkaAuthType string

const (
	KafkaAuthSASLSSL       KafkaAuthType = "SASL_SSL"
	KafkaAuthSASLPlaintext KafkaAuthType = "SASL_PLAINTEXT"
)

const (
	SASLMechanismPlain       = "PLAIN"
	SASLMechanismScramSHA256 = "SCRAM-SHA-256"
	SASLMechanismScramSHA512 = "SCRAM-SHA-512"
)

// Publisher is a tenant-defined subscription plus a delivery target.
// Documents are owned by the publisher CRUD layer; dispatch only reads them.
type Publisher struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Enabled   bool      `json:"enabled" bson:"enabled"`
	Filter    Filter    `json:"filter" bson:"filter"`
	Transform Transform `json:"transform" bson:"transform"`
	Target    Target    `json:"target" bson:"target"`
	CreatedAt time.Time `json:"createDateTime" bson:"createDateTime"`
	UpdatedAt time.Time `json:"updateDateTime" bson:"updateDateTime"`
}

type Filter struct {
	EventType           EventType    `json:"eventType" bson:"eventType"`
	ListenerType        ListenerType `json:"listenerType" bson:"listenerType"`
	OrganizationIDs     []string     `json:"organizationIds,omitempty" bson:"organizationIds"`
	DeploymentIDs       []string     `json:"deploymentIds,omitempty" bson:"deploymentIds"`
	ModuleNames         []string     `json:"moduleNames,omitempty" bson:"moduleNames"`
	ExcludedModuleNames []string     `json:"excludedModuleNames,omitempty" bson:"excludedModuleNames"`
	// Condition is an optional CEL expression the event must satisfy.
	Condition string `json:"condition,omitempty" bson:"condition,omitempty"`
}

type Transform struct {
	DeIdentified           bool     `json:"deIdentified" bson:"deIdentified"`
	IncludeNullFields      bool     `json:"includeNullFields" bson:"includeNullFields"`
	IncludeUserMetaData    bool     `json:"includeUserMetaData" bson:"includeUserMetaData"`
	IncludeFields          []string `json:"includeFields,omitempty" bson:"includeFields"`
	ExcludeFields          []string `json:"excludeFields,omitempty" bson:"excludeFields"`
	DeIdentifyHashFields   []string `json:"deIdentifyHashFields,omitempty" bson:"deIdentifyHashFields"`
	DeIdentifyRemoveFields []string `json:"deIdentifyRemoveFields,omitempty" bson:"deIdentifyRemoveFields"`
}

type Target struct {
	PublisherType TargetType     `json:"publisherType" bson:"publisherType"`
	Retry         int            `json:"retry" bson:"retry"`
	Webhook       *WebhookConfig `json:"webhook,omitempty" bson:"webhook,omitempty"`
	Kafka         *KafkaConfig   `json:"kafka,omitempty" bson:"kafka,omitempty"`
	GCPFHIR       *GCPFHIRConfig `json:"gcp_fhir,omitempty" bson:"gcp_fhir,omitempty"`
}

type WebhookConfig struct {
	Endpoint string          `json:"endpoint" bson:"endpoint"`
	AuthType WebhookAuthType `json:"authType" bson:"authType"`
	Username string          `json:"username,omitempty" bson:"username,omitempty"`
	Password string          `json:"password,omitempty" bson:"password,omitempty"`
	Token    string          `json:"token,omitempty" bson:"token,omitempty"`
}

type KafkaConfig struct {
	// URL holds comma separated bootstrap servers.
	URL           string        `json:"url" bson:"url"`
	Topic         string        `json:"topic" bson:"topic"`
	AuthType      KafkaAuthType `json:"authType" bson:"authType"`
	SASLMechanism string        `json:"saslMechanism,omitempty" bson:"saslMechanism,omitempty"`
	SASLUsername  string        `json:"saslUsername,omitempty" bson:"saslUsername,omitempty"`
	SASLPassword  string        `json:"saslPassword,omitempty" bson:"saslPassword,omitempty"`
}

type GCPFHIRConfig struct {
	URL                string            `json:"url" bson:"url"`
	ServiceAccountData string            `json:"serviceAccountData" bson:"serviceAccountData"`
	Config             map[string]string `json:"config,omitempty" bson:"config,omitempty"`
}

func (p *Publisher) IsPing() bool {
	return p.Filter.EventType == EventTypePing
}

// Attempts is the delivery attempt budget. An unset Retry falls back to
// fallback, and the budget is never below one try.
func (t Target) Attempts(fallback int) int {
	switch {
	case t.Retry >= 1:
		return t.Retry
	case fallback >= 1:
		return fallback
	default:
		return 1
	}
}
