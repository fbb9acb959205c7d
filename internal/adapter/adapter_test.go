package adapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/config"
	"herald/internal/logger"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

type recordingReporter struct {
	mu      sync.Mutex
	reports []Report
}

func (r *recordingReporter) Report(_ context.Context, rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recordingReporter) all() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

func testDeps(rep Reporter) Deps {
	return Deps{
		Config: config.DeliveryConfig{
			Webhook: config.WebhookDeliveryConfig{
				Timeout:       2 * time.Second,
				BackoffBase:   time.Millisecond,
				BackoffMax:    5 * time.Millisecond,
				BackoffFactor: 2,
			},
		},
		Logger:   logger.NopLogger(),
		Reporter: rep,
	}
}

func testEvent() *models.Event {
	return &models.Event{
		ModuleID:     "BloodPressure",
		DeploymentID: "D1",
		DeviceName:   "iOS",
		Primitives: []models.Primitive{{
			"id":             "P1",
			"userId":         "U1",
			"systolicValue":  120,
			"createDateTime": "2021-11-09T14:28:37Z",
		}},
	}
}

func TestNew_UnknownTargetType(t *testing.T) {
	p := &publisher.Publisher{ID: "pub-1", Target: publisher.Target{PublisherType: "SMTP"}}

	_, err := New(context.Background(), p, Deps{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestNew_TargetConfigMissing(t *testing.T) {
	for _, typ := range []publisher.TargetType{publisher.TargetWebhook, publisher.TargetKafka, publisher.TargetGCPFHIR} {
		t.Run(string(typ), func(t *testing.T) {
			p := &publisher.Publisher{ID: "pub-1", Target: publisher.Target{PublisherType: typ}}

			_, err := New(context.Background(), p, Deps{})
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestDeliveryPolicy(t *testing.T) {
	deps := testDeps(nil)

	p := &publisher.Publisher{Target: publisher.Target{Retry: 3}}
	policy := deps.deliveryPolicy(p)
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Millisecond, policy.InitialInterval)
	assert.Equal(t, 5*time.Millisecond, policy.MaxInterval)

	p.Target.Retry = 0
	assert.Equal(t, 1, deps.deliveryPolicy(p).MaxAttempts)

	deps.Config.Webhook.DefaultAttempts = 4
	assert.Equal(t, 4, deps.deliveryPolicy(p).MaxAttempts)

	p.Target.Retry = 2
	assert.Equal(t, 2, deps.deliveryPolicy(p).MaxAttempts)
}

func TestBreakerConfig_IgnoresPermanentRejections(t *testing.T) {
	cb := BreakerConfig(config.CircuitBreakerConfig{FailureRatio: 0.5, MinRequests: 2})

	assert.True(t, cb.IsSuccessful(nil))
	assert.True(t, cb.IsSuccessful(errors.ErrPermanentDelivery.WithDetail("status", 400)))
	assert.False(t, cb.IsSuccessful(errors.ErrDelivery))
}
