package broker

import (
	"context"

	"github.com/segmentio/kafka-go"

	"herald/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, env *models.TaskEnvelope) error
	// PublishJSON writes an arbitrary JSON document, used for failure reports.
	PublishJSON(ctx context.Context, topic, key string, v interface{}) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, env *models.TaskEnvelope) error

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
