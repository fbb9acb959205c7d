package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultWebhookBackoffBase = 500 * time.Millisecond
	DefaultWebhookBackoffMax  = 30 * time.Second
)

const (
	DefaultTaskTopic = "publisher_dispatch_tasks"
	DefaultGroupID   = "dispatch-service"
)

const (
	DefaultMongoDBName = "herald"
)

const (
	CacheKeyPrefixOrganization = "org:deployments:"
	CacheKeyPrefixTask         = "dispatch:task:"

	DefaultTaskDedupTTL = 24 * time.Hour
)

const (
	DefaultPingTimeout = 2 * time.Minute

	FailureReportBuffer  = 256
	FailureReportTimeout = 15 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultBatchSize   = 10
	DefaultConcurrency = 4
	DefaultTTLSeconds  = 300
)

const (
	DispatchModeAsync = "async"
	DispatchModeSync  = "sync"
)

const (
	ServiceName = "dispatch-service"
	TaskSource  = "module-result-callback"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	CollectionPublishers    = "publishers"
	CollectionOrganizations = "organizations"
	CollectionUsers         = "users"
	CollectionConsentLogs   = "consent_logs"
	CollectionEConsentLogs  = "econsent_logs"
	CollectionDeployments   = "deployments"

	CollectionPublisherAuditLogs = "publisher_audit_logs"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const SecretMask = "********"
