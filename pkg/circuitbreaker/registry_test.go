package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IsolatesKeys(t *testing.T) {
	cfg := DefaultConfig("webhook")
	cfg.Timeout = time.Minute
	reg := NewRegistry(cfg)

	a := reg.Get("pub-a")
	assert.Same(t, a, reg.Get("pub-a"))
	assert.Equal(t, "webhook:pub-a", a.Name())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_ = a.Do(context.Background(), func() error { return boom })
	}
	assert.True(t, a.IsOpen())

	err := a.Do(context.Background(), func() error {
		t.Fatal("open breaker must not call through")
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	b := reg.Get("pub-b")
	require.NoError(t, b.Do(context.Background(), func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestWrapper_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("ctx"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := w.Do(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
