package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Dispatch       DispatchConfig
	Delivery       DeliveryConfig
	Organization   OrganizationConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int             `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration   `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration   `mapstructure:"write_timeout_seconds"`
	RateLimit           RateLimitConfig `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers      []string    `mapstructure:"brokers"`
	GroupID      string      `mapstructure:"group_id"`
	TaskTopic    string      `mapstructure:"task_topic"`
	DLQTopic     string      `mapstructure:"dlq_topic"`
	FailureTopic string      `mapstructure:"failure_topic"`
	Retry        RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DispatchConfig struct {
	BatchSize   int    `mapstructure:"batch_size"`
	Concurrency int    `mapstructure:"concurrency"`
	HashSalt    string `mapstructure:"hash_salt"`
	// Mode is "async" (enqueue on the task topic) or "sync" (dispatch inline).
	Mode string `mapstructure:"mode"`
	// DedupTTL bounds how long consumed task ids are remembered in Redis.
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	// PingTimeout bounds an on-demand ping sent in the background.
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
}

type DeliveryConfig struct {
	Webhook WebhookDeliveryConfig `mapstructure:"webhook"`
	Kafka   KafkaDeliveryConfig   `mapstructure:"kafka"`
	FHIR    FHIRDeliveryConfig    `mapstructure:"fhir"`
}

type WebhookDeliveryConfig struct {
	Timeout         time.Duration   `mapstructure:"timeout"`
	BackoffBase     time.Duration   `mapstructure:"backoff_base"`
	BackoffMax      time.Duration   `mapstructure:"backoff_max"`
	BackoffFactor   float64         `mapstructure:"backoff_factor"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	DefaultAttempts int             `mapstructure:"default_attempts"`
}

type KafkaDeliveryConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TLS          bool          `mapstructure:"tls"`
}

type FHIRDeliveryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type OrganizationConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
