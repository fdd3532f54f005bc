package adapter

import (
	"context"
	"time"
)

// ScanState is the lifecycle state of a market scan.
type ScanState string

const (
	ScanStateIdle      ScanState = "idle"
	ScanStateRunning   ScanState = "running"
	ScanStateCompleted ScanState = "completed"
	ScanStateFailed    ScanState = "failed"
)

// ScanFailure describes why a market scan failed.
type ScanFailure struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanStatus is the last known state of a plan's market scan.
type ScanStatus struct {
	PlanID     string       `json:"plan_id"`
	JobID      string       `json:"job_id,omitempty"`
	State      ScanState    `json:"state"`
	Added      int          `json:"added"`
	Updated    int          `json:"updated"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Failure    *ScanFailure `json:"error,omitempty"`
}

// ScanTracker records market scan progress so only one scan runs per plan.
type ScanTracker interface {
	// Start marks a scan as running. It returns false if one is already running.
	Start(ctx context.Context, planID, jobID string) (bool, error)

	// Complete records a finished scan and releases the plan.
	Complete(ctx context.Context, planID string, added, updated int) error

	// Fail records a failed scan and releases the plan.
	Fail(ctx context.Context, planID string, failure *ScanFailure) error

	// Status returns the last known scan state for a plan.
	Status(ctx context.Context, planID string) (*ScanStatus, error)
}
