package adapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/circuitbreaker"
	"herald/pkg/errors"
	"herald/pkg/metrics"
	"herald/pkg/ratelimit"
	"herald/pkg/retry"
	"herald/pkg/tracing"
)

// PingBody is the payload of every liveness check.
var PingBody = []byte(`{"ping":"pong"}`)

// delivery holds what every adapter needs to run and account for a send.
type delivery struct {
	publisher *publisher.Publisher
	logger    logger.Logger
	reporter  Reporter
	policy    retry.Policy
	breaker   *circuitbreaker.Wrapper
	limiter   *ratelimit.Keyed
}

func newDelivery(p *publisher.Publisher, deps Deps) delivery {
	d := delivery{
		publisher: p,
		logger:    deps.Logger,
		reporter:  deps.Reporter,
		policy:    deps.deliveryPolicy(p),
		limiter:   deps.Limiter,
	}
	if deps.Breakers != nil {
		d.breaker = deps.Breakers.Get(p.ID)
	}
	return d
}

func (d *delivery) publisherType() string {
	return string(d.publisher.Target.PublisherType)
}

// run calls fn under the rate limiter, breaker and retry policy, and records
// the outcome. Failures are reported, never returned.
func (d *delivery) run(ctx context.Context, op string, fn func(ctx context.Context) error) bool {
	ctx, span := tracing.StartSpan(ctx, "adapter."+op)
	start := time.Now()

	err := retry.RetryWithCallback(ctx, d.policy, func() error {
		return d.attempt(ctx, fn)
	}, func(attempt int, err error, next time.Duration) {
		metrics.IncDeliveryRetry(d.publisherType())
		d.logger.WarnwCtx(ctx, "Delivery attempt failed, retrying",
			"publisher_id", d.publisher.ID,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	})

	tracing.EndSpan(span, err)
	metrics.ObserveDeliveryDuration(d.publisherType(), time.Since(start))

	if err != nil {
		metrics.IncDelivery(d.publisherType(), "failed")
		d.fail(ctx, err)
		return false
	}

	metrics.IncDelivery(d.publisherType(), "delivered")
	d.logger.InfowCtx(ctx, "Delivered to publisher",
		"publisher_id", d.publisher.ID,
		"operation", op,
		"duration", time.Since(start),
	)
	return true
}

func (d *delivery) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.limiter.Enabled() {
		if err := d.limiter.Wait(ctx, d.publisher.ID); err != nil {
			return errors.ErrDelivery.WithCause(err).WithMessage("rate limit wait aborted").AsFatal()
		}
	}

	if d.breaker == nil {
		return fn(ctx)
	}

	err := d.breaker.Do(ctx, func() error { return fn(ctx) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.ErrDelivery.WithCause(err).WithMessage("circuit breaker open").AsFatal()
	}
	return err
}

func (d *delivery) fail(ctx context.Context, err error) {
	d.reporter.Report(ctx, ReportFor(d.publisher, err))
}

// do sends req and classifies the outcome: transport errors and gateway
// class statuses are retryable, any other non-2xx is permanent.
func do(client *http.Client, req *http.Request) ([]byte, error) {
	tracing.InjectHTTPHeaders(req.Context(), req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.ErrDelivery.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.ErrDelivery.WithCause(err)
	}

	if resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax {
		return body, nil
	}

	if retry.RetryableStatus(resp.StatusCode) {
		return nil, errors.ErrDelivery.
			WithDetail("status", resp.StatusCode).
			WithMessage(http.StatusText(resp.StatusCode))
	}
	return nil, errors.ErrPermanentDelivery.
		WithDetail("status", resp.StatusCode).
		WithMessage(http.StatusText(resp.StatusCode))
}

const maxResponseBytes = 1 << 20
