package adapter

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"herald/internal/config"
	"herald/internal/constants"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaWriterOptions struct {
	Brokers      []string
	Topic        string
	Mechanism    sasl.Mechanism
	TLS          *tls.Config
	WriteTimeout time.Duration
	Completion   func(messages []kafka.Message, err error)
}

// KafkaWriterFunc opens a writer for one send. The writer is closed, and
// so flushed, before the send returns.
type KafkaWriterFunc func(opts KafkaWriterOptions) (KafkaWriter, error)

func newKafkaWriter(opts KafkaWriterOptions) (KafkaWriter, error) {
	return &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		Completion:   opts.Completion,
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: opts.WriteTimeout,
		Transport: &kafka.Transport{
			SASL: opts.Mechanism,
			TLS:  opts.TLS,
		},
	}, nil
}

type kafkaAdapter struct {
	delivery
	opts      KafkaWriterOptions
	newWriter KafkaWriterFunc
	value     []byte
}

func NewKafka(_ context.Context, p *publisher.Publisher, deps Deps) (Adapter, error) {
	cfg := p.Target.Kafka
	if cfg == nil {
		return nil, errors.ErrConfiguration.WithMessage("kafka target is missing")
	}

	brokers := config.SplitList(cfg.URL)
	if len(brokers) == 0 || cfg.Topic == "" {
		return nil, errors.ErrConfiguration.WithMessage("kafka target requires url and topic")
	}

	mechanism, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}

	opts := KafkaWriterOptions{
		Brokers:      brokers,
		Topic:        cfg.Topic,
		Mechanism:    mechanism,
		WriteTimeout: deps.Config.Kafka.WriteTimeout,
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = constants.KafkaWriteTimeout
	}
	if cfg.AuthType == publisher.KafkaAuthSASLSSL || deps.Config.Kafka.TLS {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &kafkaAdapter{
		delivery:  newDelivery(p, deps),
		opts:      opts,
		newWriter: deps.KafkaWriter,
	}, nil
}

func saslMechanism(cfg *publisher.KafkaConfig) (sasl.Mechanism, error) {
	if cfg.SASLUsername == "" || cfg.SASLPassword == "" {
		return nil, errors.ErrConfiguration.WithMessage("kafka target requires sasl username and password")
	}

	switch cfg.AuthType {
	case publisher.KafkaAuthSASLSSL, publisher.KafkaAuthSASLPlaintext:
	default:
		return nil, errors.ErrConfiguration.
			WithMessage("unsupported kafka auth type").
			WithDetail("auth_type", string(cfg.AuthType))
	}

	switch strings.ToUpper(cfg.SASLMechanism) {
	case "", publisher.SASLMechanismPlain:
		return plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}, nil
	case publisher.SASLMechanismScramSHA256:
		return scramMechanism(scram.SHA256, cfg)
	case publisher.SASLMechanismScramSHA512:
		return scramMechanism(scram.SHA512, cfg)
	}
	return nil, errors.ErrConfiguration.
		WithMessage("unsupported sasl mechanism").
		WithDetail("mechanism", cfg.SASLMechanism)
}

func scramMechanism(algo scram.Algorithm, cfg *publisher.KafkaConfig) (sasl.Mechanism, error) {
	m, err := scram.Mechanism(algo, cfg.SASLUsername, cfg.SASLPassword)
	if err != nil {
		return nil, errors.ErrConfiguration.WithCause(err).WithMessage("invalid scram credentials")
	}
	return m, nil
}

func (k *kafkaAdapter) Prepare(ctx context.Context, event *models.Event) bool {
	value, err := json.Marshal(event)
	if err != nil {
		k.fail(ctx, errors.ErrTransform.WithCause(err).WithMessage("failed to encode event"))
		return false
	}
	k.value = value
	return true
}

func (k *kafkaAdapter) Send(ctx context.Context) {
	if k.value == nil {
		return
	}
	k.run(ctx, "kafka.send", k.produce(k.value))
}

func (k *kafkaAdapter) SendPing(ctx context.Context) {
	k.run(ctx, "kafka.ping", k.produce(PingBody))
}

func (k *kafkaAdapter) produce(value []byte) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var (
			mu          sync.Mutex
			completeErr error
		)

		opts := k.opts
		opts.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				mu.Lock()
				completeErr = err
				mu.Unlock()
				k.logger.ErrorwCtx(ctx, "Kafka delivery not acknowledged",
					"publisher_id", k.publisher.ID,
					"topic", opts.Topic,
					"messages", len(messages),
					"error", err,
				)
				return
			}
			k.logger.DebugwCtx(ctx, "Kafka delivery acknowledged",
				"publisher_id", k.publisher.ID,
				"topic", opts.Topic,
				"messages", len(messages),
			)
		}

		writer, err := k.newWriter(opts)
		if err != nil {
			return errors.ErrConfiguration.WithCause(err).WithMessage("failed to create kafka writer")
		}

		writeErr := writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(uuid.NewString()),
			Value: value,
			Time:  time.Now(),
		})
		closeErr := writer.Close()

		mu.Lock()
		defer mu.Unlock()
		for _, err := range []error{writeErr, completeErr, closeErr} {
			if err != nil {
				return errors.ErrDelivery.WithCause(err)
			}
		}
		return nil
	}
}
