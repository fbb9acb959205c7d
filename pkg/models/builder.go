package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskEnvelopeBuilder struct {
	envelope *TaskEnvelope
}

func NewTaskEnvelopeBuilder() *TaskEnvelopeBuilder {
	return &TaskEnvelopeBuilder{
		envelope: &TaskEnvelope{},
	}
}

func (b *TaskEnvelopeBuilder) WithSource(source string) *TaskEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *TaskEnvelopeBuilder) WithTask(task DispatchTask) *TaskEnvelopeBuilder {
	b.envelope.Task = task
	return b
}

func (b *TaskEnvelopeBuilder) WithTraceID(traceID string) *TaskEnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

func (b *TaskEnvelopeBuilder) Build() *TaskEnvelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.New().String()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now()
	}
	return b.envelope
}
