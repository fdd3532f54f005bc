// Package cache implements short-lived state on Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/business-planner/backend/internal/application/adapter"
)

const (
	scanKeyPrefix = "plan:scan:"
	// scanLockTTL bounds how long a crashed scan can block a plan.
	scanLockTTL = 5 * time.Minute
	// scanStatusTTL is how long a finished scan status stays visible.
	scanStatusTTL = 24 * time.Hour
)

// redisScanTracker implements adapter.ScanTracker on Redis.
type redisScanTracker struct {
	client *redis.Client
}

// NewRedisScanTracker creates a scan tracker backed by Redis.
func NewRedisScanTracker(client *redis.Client) adapter.ScanTracker {
	return &redisScanTracker{client: client}
}

func lockKey(planID string) string   { return scanKeyPrefix + planID + ":lock" }
func statusKey(planID string) string { return scanKeyPrefix + planID + ":status" }

// Start takes the plan's scan lock and records a running status.
func (t *redisScanTracker) Start(ctx context.Context, planID, jobID string) (bool, error) {
	ok, err := t.client.SetNX(ctx, lockKey(planID), jobID, scanLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	now := time.Now().UTC()
	status := &adapter.ScanStatus{
		PlanID:    planID,
		JobID:     jobID,
		State:     adapter.ScanStateRunning,
		StartedAt: &now,
	}
	if err := t.put(ctx, status); err != nil {
		t.client.Del(ctx, lockKey(planID))
		return false, err
	}
	return true, nil
}

// Complete records a finished scan.
func (t *redisScanTracker) Complete(ctx context.Context, planID string, added, updated int) error {
	return t.finish(ctx, planID, func(s *adapter.ScanStatus) {
		s.State = adapter.ScanStateCompleted
		s.Added = added
		s.Updated = updated
		s.Failure = nil
	})
}

// Fail records a failed scan.
func (t *redisScanTracker) Fail(ctx context.Context, planID string, failure *adapter.ScanFailure) error {
	return t.finish(ctx, planID, func(s *adapter.ScanStatus) {
		s.State = adapter.ScanStateFailed
		s.Failure = failure
	})
}

func (t *redisScanTracker) finish(ctx context.Context, planID string, apply func(*adapter.ScanStatus)) error {
	status, err := t.Status(ctx, planID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	status.FinishedAt = &now
	apply(status)

	if err := t.put(ctx, status); err != nil {
		return err
	}
	return t.client.Del(ctx, lockKey(planID)).Err()
}

// Status returns the stored status, or an idle status when none exists.
func (t *redisScanTracker) Status(ctx context.Context, planID string) (*adapter.ScanStatus, error) {
	raw, err := t.client.Get(ctx, statusKey(planID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &adapter.ScanStatus{PlanID: planID, State: adapter.ScanStateIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan status: %w", err)
	}

	var status adapter.ScanStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode scan status: %w", err)
	}
	return &status, nil
}

func (t *redisScanTracker) put(ctx context.Context, status *adapter.ScanStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode scan status: %w", err)
	}
	if err := t.client.Set(ctx, statusKey(status.PlanID), data, scanStatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to write scan status: %w", err)
	}
	return nil
}
