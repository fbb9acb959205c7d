package models

import "time"

// DispatchTask is the unit of work handed from the callback entry point to
// the dispatch workers.
type DispatchTask struct {
	Refs           []PrimitiveRef `json:"primitiveData"`
	ModuleID       string         `json:"moduleId"`
	DeviceName     string         `json:"deviceName"`
	ModuleConfigID string         `json:"moduleConfigId"`
	DeploymentID   string         `json:"deploymentId"`
}

// TaskEnvelope wraps a DispatchTask on the task queue.
type TaskEnvelope struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Timestamp time.Time    `json:"timestamp"`
	Task      DispatchTask `json:"task"`
	Metadata  Metadata     `json:"metadata"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`

	// Set only on envelopes routed to the dead letter topic.
	DLQReason      string     `json:"dlq_reason,omitempty"`
	DLQSourceTopic string     `json:"dlq_source_topic,omitempty"`
	DLQTimestamp   *time.Time `json:"dlq_timestamp,omitempty"`
}

// FailureReport is published to the failure topic when a delivery fails.
type FailureReport struct {
	ID            string    `json:"id"`
	PublisherID   string    `json:"publisherId"`
	PublisherName string    `json:"publisherName"`
	PublisherType string    `json:"publisherType"`
	Error         string    `json:"error"`
	Code          string    `json:"code,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
