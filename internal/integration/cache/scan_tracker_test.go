package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/business-planner/backend/internal/application/adapter"
)

func newTestTracker(t *testing.T) (adapter.ScanTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisScanTracker(client), mr
}

func TestRedisScanTracker(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	status, err := tracker.Status(ctx, "plan-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != adapter.ScanStateIdle {
		t.Errorf("expected idle, got %s", status.State)
	}

	started, err := tracker.Start(ctx, "plan-1", "job-1")
	if err != nil || !started {
		t.Fatalf("expected scan to start, got %v (%v)", started, err)
	}

	t.Run("second scan is rejected while running", func(t *testing.T) {
		started, err := tracker.Start(ctx, "plan-1", "job-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if started {
			t.Error("expected second scan to be rejected")
		}
		status, _ := tracker.Status(ctx, "plan-1")
		if status.State != adapter.ScanStateRunning || status.JobID != "job-1" {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("other plans are independent", func(t *testing.T) {
		started, err := tracker.Start(ctx, "plan-2", "job-3")
		if err != nil || !started {
			t.Errorf("expected scan on another plan to start, got %v (%v)", started, err)
		}
	})

	t.Run("complete releases the plan", func(t *testing.T) {
		if err := tracker.Complete(ctx, "plan-1", 3, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		status, _ := tracker.Status(ctx, "plan-1")
		if status.State != adapter.ScanStateCompleted || status.Added != 3 || status.Updated != 1 {
			t.Errorf("unexpected status: %+v", status)
		}
		if status.FinishedAt == nil {
			t.Error("expected finish time")
		}
		started, _ := tracker.Start(ctx, "plan-1", "job-4")
		if !started {
			t.Error("expected a new scan to start after completion")
		}
	})

	t.Run("failure is recorded", func(t *testing.T) {
		failure := &adapter.ScanFailure{Code: "AI_RATE_LIMITED", Message: "slow down", Retryable: true, Timestamp: time.Now()}
		if err := tracker.Fail(ctx, "plan-1", failure); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		status, _ := tracker.Status(ctx, "plan-1")
		if status.State != adapter.ScanStateFailed || status.Failure == nil || status.Failure.Code != "AI_RATE_LIMITED" {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("stale lock expires", func(t *testing.T) {
		started, _ := tracker.Start(ctx, "plan-3", "job-5")
		if !started {
			t.Fatal("expected scan to start")
		}
		mr.FastForward(scanLockTTL + time.Second)
		started, _ = tracker.Start(ctx, "plan-3", "job-6")
		if !started {
			t.Error("expected expired lock to be released")
		}
	})
}
