package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/metrics"
	"herald/pkg/models"
)

type Report struct {
	PublisherID   string
	PublisherName string
	PublisherType publisher.TargetType
	Err           error
}

// Reporter receives delivery failures. Implementations must not block the
// caller for long and never fail it.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

// FailurePublisher is the part of the task producer used for failure reports.
type FailurePublisher interface {
	PublishJSON(ctx context.Context, topic, key string, v interface{}) error
}

// SinkReporter logs and counts reports on the caller's goroutine and
// forwards them to the failure topic from a single background goroutine.
type SinkReporter struct {
	logger    logger.Logger
	publisher FailurePublisher
	topic     string
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan models.FailureReport
	done   chan struct{}
}

// NewReporter logs and counts every report, and forwards it to topic when
// both pub and topic are set. Forwarding never blocks Report: when the
// buffer is full the report is dropped and counted. Call Close to flush.
func NewReporter(log logger.Logger, pub FailurePublisher, topic string) *SinkReporter {
	return newReporter(log, pub, topic, constants.FailureReportBuffer, constants.FailureReportTimeout)
}

func newReporter(log logger.Logger, pub FailurePublisher, topic string, buffer int, timeout time.Duration) *SinkReporter {
	if log == nil {
		log = logger.NopLogger()
	}
	r := &SinkReporter{logger: log, publisher: pub, topic: topic, timeout: timeout}
	if pub != nil && topic != "" {
		r.queue = make(chan models.FailureReport, buffer)
		r.done = make(chan struct{})
		go r.forward()
	}
	return r
}

func (r *SinkReporter) Report(ctx context.Context, rep Report) {
	code := errors.Code(rep.Err)
	metrics.IncFailureReport(string(rep.PublisherType), code)

	r.logger.ErrorwCtx(ctx, "Publisher delivery failed",
		"publisher_id", rep.PublisherID,
		"publisher_name", rep.PublisherName,
		"publisher_type", rep.PublisherType,
		"code", code,
		"error", rep.Err,
	)

	if r.queue == nil {
		return
	}

	msg := models.FailureReport{
		ID:            uuid.NewString(),
		PublisherID:   rep.PublisherID,
		PublisherName: rep.PublisherName,
		PublisherType: string(rep.PublisherType),
		Code:          code,
		Timestamp:     time.Now().UTC(),
	}
	if rep.Err != nil {
		msg.Error = rep.Err.Error()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.IncFailureReportDropped("closed")
		return
	}
	select {
	case r.queue <- msg:
	default:
		metrics.IncFailureReportDropped("buffer_full")
		r.logger.WarnwCtx(ctx, "Failure report buffer full, dropping report",
			"publisher_id", rep.PublisherID,
			"topic", r.topic,
		)
	}
}

func (r *SinkReporter) forward() {
	defer close(r.done)
	for msg := range r.queue {
		r.publish(msg)
	}
}

func (r *SinkReporter) publish(msg models.FailureReport) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.publisher.PublishJSON(ctx, r.topic, msg.PublisherID, msg); err != nil {
		r.logger.WarnwCtx(ctx, "Failed to publish failure report",
			"publisher_id", msg.PublisherID,
			"topic", r.topic,
			"error", err,
		)
	}
}

// Close stops accepting reports and waits until the queued ones have been
// published or ctx is done.
func (r *SinkReporter) Close(ctx context.Context) error {
	if r.queue == nil {
		return nil
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failure reports not flushed: %w", ctx.Err())
	}
}

// ReportFor builds a Report for p.
func ReportFor(p *publisher.Publisher, err error) Report {
	return Report{
		PublisherID:   p.ID,
		PublisherName: p.Name,
		PublisherType: p.Target.PublisherType,
		Err:           err,
	}
}
