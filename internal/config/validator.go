package config

import (
	"fmt"
	"strings"

	"herald/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	validators := []func() error{
		func() error { return validateServer(cfg.Server) },
		func() error { return validateKafka(cfg.Broker.Kafka) },
		func() error { return validateDatabase(cfg.Database) },
		func() error { return validateDispatch(cfg.Dispatch) },
		func() error { return validateDelivery(cfg.Delivery) },
		func() error { return validateCircuitBreaker(cfg.CircuitBreaker) },
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.TaskTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.task_topic",
			Message: "task topic is required",
		}
	}

	if cfg.DLQTopic != "" && cfg.DLQTopic == cfg.TaskTopic {
		return &ValidationError{
			Field:   "broker.kafka.dlq_topic",
			Message: "dlq topic must differ from the task topic",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".initial_interval",
			Message: "intervals must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.MongoDB.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.MongoDB.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	if cfg.Redis.Host != "" && (cfg.Redis.Port < 1 || cfg.Redis.Port > 65535) {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		}
	}

	if cfg.Redis.DB < 0 || cfg.Redis.DB > 15 {
		return &ValidationError{
			Field:   "database.redis.db",
			Message: fmt.Sprintf("Redis DB must be between 0 and 15, got %d", cfg.Redis.DB),
		}
	}

	return nil
}

func validateDispatch(cfg DispatchConfig) error {
	if cfg.BatchSize < 1 {
		return &ValidationError{
			Field:   "dispatch.batch_size",
			Message: fmt.Sprintf("batch size must be positive, got %d", cfg.BatchSize),
		}
	}

	if cfg.Concurrency < 1 {
		return &ValidationError{
			Field:   "dispatch.concurrency",
			Message: fmt.Sprintf("concurrency must be positive, got %d", cfg.Concurrency),
		}
	}

	switch cfg.Mode {
	case constants.DispatchModeAsync, constants.DispatchModeSync:
	default:
		return &ValidationError{
			Field:   "dispatch.mode",
			Message: fmt.Sprintf("unknown dispatch mode: %s (supported: async, sync)", cfg.Mode),
		}
	}

	return nil
}

func validateDelivery(cfg DeliveryConfig) error {
	if cfg.Webhook.Timeout <= 0 {
		return &ValidationError{
			Field:   "delivery.webhook.timeout",
			Message: "webhook timeout must be positive",
		}
	}

	if cfg.Webhook.BackoffBase <= 0 || cfg.Webhook.BackoffMax < cfg.Webhook.BackoffBase {
		return &ValidationError{
			Field:   "delivery.webhook.backoff_max",
			Message: "backoff_base must be positive and not exceed backoff_max",
		}
	}

	if cfg.Webhook.BackoffFactor < 1 {
		return &ValidationError{
			Field:   "delivery.webhook.backoff_factor",
			Message: "backoff_factor must be at least 1",
		}
	}

	if cfg.Webhook.RateLimit.Enabled && cfg.Webhook.RateLimit.RPS <= 0 {
		return &ValidationError{
			Field:   "delivery.webhook.rate_limit.rps",
			Message: "rps must be positive when rate limiting is enabled",
		}
	}

	if cfg.Kafka.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "delivery.kafka.write_timeout",
			Message: "kafka write timeout must be positive",
		}
	}

	if cfg.FHIR.Timeout <= 0 {
		return &ValidationError{
			Field:   "delivery.fhir.timeout",
			Message: "fhir timeout must be positive",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: fmt.Sprintf("failure ratio must be in (0, 1], got %v", cfg.FailureRatio),
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}
