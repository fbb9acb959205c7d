package adapter

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

type capturedMessage struct {
	topic, key string
	value      interface{}
}

type fakeFailurePublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
	err      error
	// release, when set, holds every publish until it is closed.
	release chan struct{}
}

func (f *fakeFailurePublisher) PublishJSON(ctx context.Context, topic, key string, v interface{}) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, capturedMessage{topic: topic, key: key, value: v})
	return f.err
}

func (f *fakeFailurePublisher) all() []capturedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedMessage(nil), f.messages...)
}

func TestSinkReporter_PublishesFailure(t *testing.T) {
	pub := &fakeFailurePublisher{}
	r := NewReporter(logger.NopLogger(), pub, "publisher_failures")

	p := &publisher.Publisher{ID: "pub-1", Name: "hook", Target: publisher.Target{PublisherType: publisher.TargetWebhook}}
	r.Report(context.Background(), ReportFor(p, errors.ErrDelivery.WithDetail("status", 503)))
	require.NoError(t, r.Close(context.Background()))

	messages := pub.all()
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Equal(t, "publisher_failures", msg.topic)
	assert.Equal(t, "pub-1", msg.key)

	report, ok := msg.value.(models.FailureReport)
	require.True(t, ok)
	assert.Equal(t, "hook", report.PublisherName)
	assert.Equal(t, "WEBHOOK", report.PublisherType)
	assert.Equal(t, "DELIVERY_ERROR", report.Code)
	assert.NotEmpty(t, report.ID)
}

func TestSinkReporter_NeverFailsCaller(t *testing.T) {
	pub := &fakeFailurePublisher{err: stderrors.New("broker down")}
	r := NewReporter(logger.NopLogger(), pub, "publisher_failures")

	assert.NotPanics(t, func() {
		r.Report(context.Background(), Report{PublisherID: "pub-1", Err: stderrors.New("boom")})
	})
	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, pub.all(), 1)
}

func TestSinkReporter_WithoutTopic(t *testing.T) {
	pub := &fakeFailurePublisher{}
	r := NewReporter(logger.NopLogger(), pub, "")
	r.Report(context.Background(), Report{PublisherID: "pub-1"})

	require.NoError(t, r.Close(context.Background()))
	assert.Empty(t, pub.all())
}

func TestSinkReporter_ReportDoesNotWaitForSlowTopic(t *testing.T) {
	pub := &fakeFailurePublisher{release: make(chan struct{})}
	r := NewReporter(logger.NopLogger(), pub, "publisher_failures")

	start := time.Now()
	r.Report(context.Background(), Report{PublisherID: "pub-1", Err: errors.ErrDelivery})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, pub.all())

	close(pub.release)
	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, pub.all(), 1)
}

func TestSinkReporter_PublishIgnoresCallerCancellation(t *testing.T) {
	pub := &fakeFailurePublisher{}
	r := NewReporter(logger.NopLogger(), pub, "publisher_failures")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Report(ctx, Report{PublisherID: "pub-1", Err: errors.ErrDelivery})

	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, pub.all(), 1)
}

func TestSinkReporter_DropsWhenBufferFull(t *testing.T) {
	pub := &fakeFailurePublisher{release: make(chan struct{})}
	r := newReporter(logger.NopLogger(), pub, "publisher_failures", 1, time.Minute)

	for i := 0; i < 5; i++ {
		r.Report(context.Background(), Report{PublisherID: "pub-1", Err: errors.ErrDelivery})
	}

	close(pub.release)
	require.NoError(t, r.Close(context.Background()))
	// one report in flight plus one buffered
	assert.LessOrEqual(t, len(pub.all()), 2)
	assert.NotEmpty(t, pub.all())
}

func TestSinkReporter_CloseTimesOut(t *testing.T) {
	pub := &fakeFailurePublisher{release: make(chan struct{})}
	r := newReporter(logger.NopLogger(), pub, "publisher_failures", 4, time.Minute)
	r.Report(context.Background(), Report{PublisherID: "pub-1", Err: errors.ErrDelivery})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Close(ctx))

	r.Report(context.Background(), Report{PublisherID: "pub-2", Err: errors.ErrDelivery})
	close(pub.release)
}
