// Package adapter delivers transformed events to publisher targets.
//
// Adapters are built per publisher for one dispatch run and never return
// errors to the caller: every failure is logged, counted and handed to the
// Reporter.
package adapter

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"

	"herald/internal/config"
	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/circuitbreaker"
	"herald/pkg/errors"
	"herald/pkg/models"
	"herald/pkg/ratelimit"
	"herald/pkg/retry"
)

type Adapter interface {
	// Prepare builds the protocol payload. It returns false when the event
	// cannot be delivered; the failure has already been reported.
	Prepare(ctx context.Context, event *models.Event) bool
	Send(ctx context.Context)
	SendPing(ctx context.Context)
}

// TransformOverrider is implemented by adapters whose wire format needs
// specific transform settings regardless of the publisher's own.
type TransformOverrider interface {
	OverrideTransform(t publisher.Transform) publisher.Transform
}

// Factory builds an adapter for one publisher. It returns a configuration
// error when the target does not carry what the adapter needs.
type Factory func(ctx context.Context, p *publisher.Publisher, deps Deps) (Adapter, error)

// Factories is the lookup table from target type to adapter.
var Factories = map[publisher.TargetType]Factory{
	publisher.TargetWebhook: NewWebhook,
	publisher.TargetKafka:   NewKafka,
	publisher.TargetGCPFHIR: NewGCPFHIR,
}

// Deps are shared by every adapter built during the process lifetime.
type Deps struct {
	Config   config.DeliveryConfig
	Logger   logger.Logger
	Reporter Reporter
	Breakers *circuitbreaker.Registry
	Limiter  *ratelimit.Keyed

	HTTPClient  *http.Client
	FHIRClient  FHIRClientFunc
	KafkaWriter KafkaWriterFunc
}

// New selects the factory for p's target type.
func New(ctx context.Context, p *publisher.Publisher, deps Deps) (Adapter, error) {
	factory, ok := Factories[p.Target.PublisherType]
	if !ok {
		return nil, errors.ErrConfiguration.
			WithMessage("unsupported publisher type").
			WithDetail("publisher_type", string(p.Target.PublisherType))
	}
	return factory(ctx, p, deps.withDefaults())
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.NopLogger()
	}
	if d.Reporter == nil {
		d.Reporter = NewReporter(d.Logger, nil, "")
	}
	if d.HTTPClient == nil {
		timeout := d.Config.Webhook.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultHTTPTimeout
		}
		d.HTTPClient = &http.Client{Timeout: timeout}
	}
	if d.FHIRClient == nil {
		d.FHIRClient = GoogleFHIRClient
	}
	if d.KafkaWriter == nil {
		d.KafkaWriter = newKafkaWriter
	}
	return d
}

// deliveryPolicy is the retry policy for one publisher's sends.
func (d Deps) deliveryPolicy(p *publisher.Publisher) retry.Policy {
	cfg := d.Config.Webhook
	policy := retry.Policy{
		InitialInterval: cfg.BackoffBase,
		MaxInterval:     cfg.BackoffMax,
		Multiplier:      cfg.BackoffFactor,
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = constants.DefaultWebhookBackoffBase
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = constants.DefaultWebhookBackoffMax
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}

	return policy.WithAttempts(p.Target.Attempts(cfg.DefaultAttempts))
}

// BreakerConfig turns the circuit breaker section into a registry template.
// Rejections by the publisher do not count against its breaker.
func BreakerConfig(cfg config.CircuitBreakerConfig) circuitbreaker.Config {
	cb := circuitbreaker.DefaultConfig("publisher")
	if cfg.MaxRequests > 0 {
		cb.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cb.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cb.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		ratio, minRequests := cfg.FailureRatio, cfg.MinRequests
		cb.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		}
	}
	cb.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errors.ErrPermanentDelivery)
	}
	return cb
}
