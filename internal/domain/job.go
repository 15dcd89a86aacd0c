// Package domain holds the types persisted by the ingestion engine.
package domain

import "time"

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Job is one client submission, tracked as a single row through its
// lifecycle (spec.md §3).
type Job struct {
	ID             string
	TenantID       string
	IdempotencyKey *string
	Status         Status
	Attempt        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AvailableAt    *time.Time
	LockedAt       *time.Time
	LockedBy       *string
	Error          *string
	ProcessedAt    *time.Time
}

// RawEvent is one item inside a submission, preserved verbatim.
type RawEvent struct {
	ID        int64
	JobID     string
	TenantID  string
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// ResultRow is one (event type, count) pair produced by the aggregator
// for one job.
type ResultRow struct {
	EventType string
	Count     int
}
