package dispatch

import (
	"context"
	"fmt"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/pkg/errors"
	"herald/pkg/logging"
	"herald/pkg/metrics"
	"herald/pkg/models"
	"herald/pkg/tracing"
)

// TaskQueue accepts dispatch tasks for asynchronous processing.
type TaskQueue interface {
	Publish(ctx context.Context, topic string, env *models.TaskEnvelope) error
}

// TaskGuard drops envelopes that were already dispatched. Release undoes a
// claim whose dispatch was aborted.
type TaskGuard interface {
	Claim(ctx context.Context, taskID string) bool
	Release(ctx context.Context, taskID string)
}

// Callback is called by the module-result write path once a batch of
// primitives has been stored.
type Callback struct {
	queue       TaskQueue
	topic       string
	recreator   *Recreator
	coordinator *Coordinator
	logger      logger.Logger
	guard       TaskGuard
	sync        bool
}

// NewCallback enqueues tasks on topic, or dispatches inline when queue is nil
// or mode is sync.
func NewCallback(queue TaskQueue, topic, mode string, recreator *Recreator, coordinator *Coordinator, log logger.Logger) *Callback {
	return &Callback{
		queue:       queue,
		topic:       topic,
		recreator:   recreator,
		coordinator: coordinator,
		logger:      log,
		sync:        queue == nil || mode == constants.DispatchModeSync,
	}
}

// WithGuard enables redelivery detection in HandleTask.
func (c *Callback) WithGuard(g TaskGuard) *Callback {
	c.guard = g
	return c
}

// OnModuleResultBatch schedules dispatch of the stored primitives. Only an
// enqueue failure is returned; delivery outcomes never reach the caller.
func (c *Callback) OnModuleResultBatch(ctx context.Context, refs []models.PrimitiveRef, moduleID, deviceName, moduleConfigID, deploymentID string) error {
	task := models.DispatchTask{
		Refs:           refs,
		ModuleID:       moduleID,
		DeviceName:     deviceName,
		ModuleConfigID: moduleConfigID,
		DeploymentID:   deploymentID,
	}
	if err := models.ValidateDispatchTask(&task); err != nil {
		return errors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	if c.sync {
		if err := c.RunSync(ctx, task); err != nil {
			metrics.IncCallbackTask(constants.DispatchModeSync, "failed")
			c.logger.ErrorwCtx(ctx, "Inline dispatch failed", "module_id", moduleID, "error", err)
			return nil
		}
		metrics.IncCallbackTask(constants.DispatchModeSync, "dispatched")
		return nil
	}

	env := models.NewTaskEnvelopeBuilder().
		WithSource(constants.TaskSource).
		WithTask(task).
		WithTraceID(tracing.TraceID(ctx)).
		Build()

	if err := c.queue.Publish(ctx, c.topic, env); err != nil {
		metrics.IncCallbackTask(constants.DispatchModeAsync, "failed")
		c.logger.ErrorwCtx(ctx, "Failed to enqueue dispatch task",
			"task_id", env.ID,
			"module_id", moduleID,
			"error", err,
		)
		return errors.ErrServiceUnavailable.WithCause(err).WithMessage("failed to enqueue dispatch task")
	}

	metrics.IncCallbackTask(constants.DispatchModeAsync, "enqueued")
	c.logger.InfowCtx(ctx, "Dispatch task enqueued",
		"task_id", env.ID,
		"module_id", moduleID,
		"primitives", len(refs),
	)
	return nil
}

// RunSync recreates and dispatches task on the calling goroutine.
func (c *Callback) RunSync(ctx context.Context, task models.DispatchTask) error {
	event, err := c.recreator.Recreate(ctx, task)
	if err != nil {
		return err
	}
	return c.coordinator.Dispatch(ctx, event)
}

// HandleTask processes one envelope from the task topic. Recreation errors
// keep their retry classification; a failed dispatch is never retried so
// that publishers already served are not served twice.
func (c *Callback) HandleTask(ctx context.Context, env *models.TaskEnvelope) error {
	ctx = logging.WithTaskID(ctx, env.ID)

	event, err := c.recreator.Recreate(ctx, env.Task)
	if err != nil {
		return err
	}

	if c.guard != nil && !c.guard.Claim(ctx, env.ID) {
		c.logger.InfowCtx(ctx, "Skipping redelivered dispatch task", "module_id", env.Task.ModuleID)
		return nil
	}

	if err := c.coordinator.Dispatch(ctx, event); err != nil {
		// The task goes to the DLQ; a replay must not be taken for a duplicate.
		if c.guard != nil {
			c.guard.Release(ctx, env.ID)
		}
		return errors.ErrInternal.WithCause(err).WithMessage(fmt.Sprintf("dispatch of task %s aborted", env.ID)).AsFatal()
	}
	return nil
}
