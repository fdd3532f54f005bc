package competitor

import (
	"context"
	"sync"
	"time"

	"github.com/business-planner/backend/internal/application/adapter"
)

// InMemoryScanTracker is a process-local adapter.ScanTracker used when Redis
// is not configured.
type InMemoryScanTracker struct {
	mu       sync.RWMutex
	statuses map[string]*adapter.ScanStatus
}

// NewInMemoryScanTracker creates a new in-memory scan tracker.
func NewInMemoryScanTracker() *InMemoryScanTracker {
	return &InMemoryScanTracker{
		statuses: make(map[string]*adapter.ScanStatus),
	}
}

// Start marks a scan as running unless one already is.
func (t *InMemoryScanTracker) Start(ctx context.Context, planID, jobID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.statuses[planID]; ok && s.State == adapter.ScanStateRunning {
		return false, nil
	}
	now := time.Now().UTC()
	t.statuses[planID] = &adapter.ScanStatus{
		PlanID:    planID,
		JobID:     jobID,
		State:     adapter.ScanStateRunning,
		StartedAt: &now,
	}
	return true, nil
}

// Complete records a finished scan.
func (t *InMemoryScanTracker) Complete(ctx context.Context, planID string, added, updated int) error {
	t.finish(planID, func(s *adapter.ScanStatus) {
		s.State = adapter.ScanStateCompleted
		s.Added = added
		s.Updated = updated
		s.Failure = nil
	})
	return nil
}

// Fail records a failed scan.
func (t *InMemoryScanTracker) Fail(ctx context.Context, planID string, failure *adapter.ScanFailure) error {
	t.finish(planID, func(s *adapter.ScanStatus) {
		s.State = adapter.ScanStateFailed
		s.Failure = failure
	})
	return nil
}

func (t *InMemoryScanTracker) finish(planID string, apply func(*adapter.ScanStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.statuses[planID]
	if !ok {
		s = &adapter.ScanStatus{PlanID: planID}
		t.statuses[planID] = s
	}
	now := time.Now().UTC()
	s.FinishedAt = &now
	apply(s)
}

// Status returns a copy of the last known status, idle if none.
func (t *InMemoryScanTracker) Status(ctx context.Context, planID string) (*adapter.ScanStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.statuses[planID]
	if !ok {
		return &adapter.ScanStatus{PlanID: planID, State: adapter.ScanStateIdle}, nil
	}
	out := *s
	return &out, nil
}
