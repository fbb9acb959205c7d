package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"herald/pkg/logging"
)

func TestContextFieldsAreAppended(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))
	log.(*SugaredLogger).SetServiceName("dispatch-service")

	ctx := logging.WithTaskID(context.Background(), "task-1")
	ctx = logging.WithPublisher(ctx, "pub-1", "KAFKA")
	log.InfowCtx(ctx, "delivered", "attempts", 1)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "task-1", fields["task_id"])
	assert.Equal(t, "pub-1", fields["publisher_id"])
	assert.Equal(t, "KAFKA", fields["publisher_type"])
	assert.Equal(t, "dispatch-service", fields["service_name"])
	assert.EqualValues(t, 1, fields["attempts"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
