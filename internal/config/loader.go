package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"herald/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 15*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 15*time.Second)

	viper.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)

	viper.SetDefault("broker.kafka.group_id", constants.DefaultGroupID)
	viper.SetDefault("broker.kafka.task_topic", constants.DefaultTaskTopic)
	viper.SetDefault("broker.kafka.dlq_topic", constants.DefaultTaskTopic+".dlq")
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.initial_interval", time.Second)
	viper.SetDefault("broker.kafka.retry.max_interval", 30*time.Second)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("dispatch.batch_size", constants.DefaultBatchSize)
	viper.SetDefault("dispatch.concurrency", constants.DefaultConcurrency)
	viper.SetDefault("dispatch.mode", constants.DispatchModeAsync)
	viper.SetDefault("dispatch.dedup_ttl", constants.DefaultTaskDedupTTL)
	viper.SetDefault("dispatch.ping_timeout", constants.DefaultPingTimeout)

	viper.SetDefault("delivery.webhook.timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("delivery.webhook.backoff_base", constants.DefaultWebhookBackoffBase)
	viper.SetDefault("delivery.webhook.backoff_max", constants.DefaultWebhookBackoffMax)
	viper.SetDefault("delivery.webhook.backoff_factor", 2.0)
	viper.SetDefault("delivery.webhook.default_attempts", 1)
	viper.SetDefault("delivery.kafka.write_timeout", constants.KafkaWriteTimeout)
	viper.SetDefault("delivery.fhir.timeout", constants.DefaultHTTPTimeout)

	viper.SetDefault("organization.cache_ttl", time.Duration(constants.DefaultTTLSeconds)*time.Second)

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 60*time.Second)
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 3)
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.task_topic", "BROKER_KAFKA_TASK_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")
	viper.BindEnv("broker.kafka.failure_topic", "BROKER_KAFKA_FAILURE_TOPIC")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")

	viper.BindEnv("dispatch.batch_size", "DISPATCH_BATCH_SIZE")
	viper.BindEnv("dispatch.concurrency", "DISPATCH_CONCURRENCY")
	viper.BindEnv("dispatch.hash_salt", "DISPATCH_HASH_SALT")
	viper.BindEnv("dispatch.mode", "DISPATCH_MODE")
	viper.BindEnv("dispatch.dedup_ttl", "DISPATCH_DEDUP_TTL")
	viper.BindEnv("dispatch.ping_timeout", "DISPATCH_PING_TIMEOUT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := SplitList(brokersEnv)
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}
}

// SplitList splits a comma separated list and drops empty items.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
