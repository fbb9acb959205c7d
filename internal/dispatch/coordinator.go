package dispatch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"herald/internal/adapter"
	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/logging"
	"herald/pkg/metrics"
	"herald/pkg/models"
	"herald/pkg/tracing"
)

type AdapterFunc func(ctx context.Context, p *publisher.Publisher, deps adapter.Deps) (adapter.Adapter, error)

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Registry    publisher.Registry
	Matcher     *Matcher
	Transformer *Transformer
	Adapters    adapter.Deps
	Logger      logger.Logger

	BatchSize   int
	Concurrency int

	// PingTimeout bounds a background ping started by PingAsync.
	PingTimeout time.Duration

	// NewAdapter defaults to adapter.New.
	NewAdapter AdapterFunc
}

// Coordinator fans one event out to every subscribed publisher.
type Coordinator struct {
	deps     Deps
	reporter adapter.Reporter
	pings    sync.WaitGroup
}

func NewCoordinator(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = logger.NopLogger()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = constants.DefaultBatchSize
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = constants.DefaultConcurrency
	}
	if deps.PingTimeout <= 0 {
		deps.PingTimeout = constants.DefaultPingTimeout
	}
	if deps.NewAdapter == nil {
		deps.NewAdapter = adapter.New
	}
	if deps.Adapters.Logger == nil {
		deps.Adapters.Logger = deps.Logger
	}
	if deps.Adapters.Reporter == nil {
		deps.Adapters.Reporter = adapter.NewReporter(deps.Logger, nil, "")
	}
	return &Coordinator{deps: deps, reporter: deps.Adapters.Reporter}
}

// Dispatch pages through the registry and hands every publisher to the
// worker pool. Per-publisher failures are reported and never returned; the
// only error is a failed registry read, after which already started
// deliveries still finish.
func (c *Coordinator) Dispatch(ctx context.Context, event *models.Event) (err error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.dispatch",
		attribute.String("module_id", event.ModuleID),
		attribute.String("deployment_id", event.DeploymentID),
	)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DispatchRunsTotal.WithLabelValues(status).Inc()
		metrics.ObserveDispatchDuration(time.Since(start), status)
		tracing.EndSpan(span, err)
	}()

	g := new(errgroup.Group)
	g.SetLimit(c.deps.Concurrency)

	for skip, total := 0, 0; skip == 0 || skip < total; skip += c.deps.BatchSize {
		var page []publisher.Publisher
		page, total, err = c.deps.Registry.RetrievePublishers(ctx, skip, c.deps.BatchSize)
		metrics.RegistryPageReadsTotal.Inc()
		if err != nil {
			c.deps.Logger.ErrorwCtx(ctx, "Failed to read publisher registry", "skip", skip, "error", err)
			break
		}
		if total == 0 || len(page) == 0 {
			break
		}

		for i := range page {
			p := &page[i]
			g.Go(func() error {
				c.handle(ctx, p, event)
				return nil
			})
		}
	}

	_ = g.Wait()
	return err
}

func (c *Coordinator) handle(ctx context.Context, p *publisher.Publisher, event *models.Event) {
	ctx = logging.WithPublisher(ctx, p.ID, string(p.Target.PublisherType))

	err := errors.Guard(func() error {
		return c.deliver(ctx, p, event)
	})
	if err != nil {
		metrics.IncPublisherDecision("error")
		c.reporter.Report(ctx, adapter.ReportFor(p, err))
	}
}

func (c *Coordinator) deliver(ctx context.Context, p *publisher.Publisher, event *models.Event) error {
	if !p.Enabled {
		metrics.IncPublisherDecision("disabled")
		return nil
	}

	matched, err := c.deps.Matcher.Match(ctx, p, event)
	if err != nil {
		return err
	}
	if !matched {
		metrics.IncPublisherDecision("unmatched")
		return nil
	}
	metrics.IncPublisherDecision("matched")

	a, err := c.deps.NewAdapter(ctx, p, c.deps.Adapters)
	if err != nil {
		return err
	}

	if p.IsPing() {
		a.SendPing(ctx)
		return nil
	}

	shaped := *p
	if o, ok := a.(adapter.TransformOverrider); ok {
		shaped.Transform = o.OverrideTransform(p.Transform)
	}

	clone := event.Clone()
	if err := c.deps.Transformer.Transform(ctx, &shaped, clone); err != nil {
		return err
	}

	if a.Prepare(ctx, clone) {
		a.Send(ctx)
	}
	return nil
}

// Ping sends a liveness check to one publisher regardless of its filter.
func (c *Coordinator) Ping(ctx context.Context, publisherID string) error {
	p, err := c.deps.Registry.RetrievePublisher(ctx, publisherID)
	if err != nil {
		return err
	}
	if err := c.ping(ctx, p); err != nil {
		c.reporter.Report(ctx, adapter.ReportFor(p, err))
		return err
	}
	return nil
}

// PingAsync looks the publisher up on ctx and sends the check in the
// background. The delivery outlives ctx and is bounded by PingTimeout;
// failures go to the reporter.
func (c *Coordinator) PingAsync(ctx context.Context, publisherID string) error {
	p, err := c.deps.Registry.RetrievePublisher(ctx, publisherID)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.deps.PingTimeout)
	c.pings.Add(1)
	go func() {
		defer c.pings.Done()
		defer cancel()
		err := errors.Guard(func() error {
			return c.ping(pingCtx, p)
		})
		if err != nil {
			c.reporter.Report(pingCtx, adapter.ReportFor(p, err))
		}
	}()
	return nil
}

// Wait blocks until background pings have finished.
func (c *Coordinator) Wait() {
	c.pings.Wait()
}

func (c *Coordinator) ping(ctx context.Context, p *publisher.Publisher) error {
	ctx = logging.WithPublisher(ctx, p.ID, string(p.Target.PublisherType))

	a, err := c.deps.NewAdapter(ctx, p, c.deps.Adapters)
	if err != nil {
		return err
	}
	a.SendPing(ctx)
	return nil
}
