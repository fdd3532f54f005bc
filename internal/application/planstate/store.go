// Package planstate keeps the authoritative working copy of an open plan.
//
// A Store owns one plan's document, its bounded undo/redo history and its
// save state. Every committed edit is persisted asynchronously through an
// adapter.PlanPersistence; failed saves are retried with exponential backoff
// and never roll the edit back.
package planstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/domain/projection"
)

// Status is the persistence state of a store.
type Status string

const (
	StatusClean      Status = "clean"
	StatusDirty      Status = "dirty"
	StatusPersisting Status = "persisting"
)

// ErrStoreClosed is returned when committing to a closed store.
var ErrStoreClosed = errors.New("plan state store is closed")

// Options configures a Store.
type Options struct {
	// HistoryLimit caps the number of snapshots kept, current one included.
	HistoryLimit int
	// MaxSaveAttempts bounds automatic save attempts per edit.
	MaxSaveAttempts int
	// RetryBaseDelay is the delay before the first retry; each further retry
	// doubles it.
	RetryBaseDelay time.Duration
	// SaveTimeout bounds a single background save.
	SaveTimeout time.Duration
	// OnSaveResult, when set, is called after every save attempt.
	OnSaveResult func(planID string, attempt int, elapsed time.Duration, err error)
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		HistoryLimit:    50,
		MaxSaveAttempts: 4,
		RetryBaseDelay:  500 * time.Millisecond,
		SaveTimeout:     10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.MaxSaveAttempts <= 0 {
		o.MaxSaveAttempts = d.MaxSaveAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = d.RetryBaseDelay
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = d.SaveTimeout
	}
	return o
}

// State is a point-in-time view of a store.
type State struct {
	PlanID        string
	Status        Status
	CanUndo       bool
	CanRedo       bool
	Position      int
	HistoryLength int
	Generation    uint64
	LastError     string
	LastSavedAt   *time.Time
}

// Store is the in-memory working copy of one plan.
type Store struct {
	planID string
	port   adapter.PlanPersistence
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	history     []*entity.BusinessPlanDocument
	pointer     int
	current     *entity.BusinessPlanDocument
	status      Status
	generation  uint64
	lastErr     error
	lastSavedAt *time.Time
	retryTimer  *time.Timer
	closed      bool

	// saveMu serializes writes to the port so an older save can never land
	// after a newer one.
	saveMu sync.Mutex
	wg     sync.WaitGroup
}

// Open loads a plan through the port, migrates it to the current document
// shape and returns a store positioned on it. A migrated document is saved
// back in the background.
func Open(ctx context.Context, port adapter.PlanPersistence, planID string, opts Options) (*Store, error) {
	doc, err := port.Load(ctx, planID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domainerror.ErrPlanNotFound
	}

	migrated := plandata.Migrate(doc)

	s := &Store{
		planID:  planID,
		port:    port,
		opts:    opts.withDefaults(),
		logger:  slog.Default().With("component", "plan_state_store", "plan_id", planID),
		history: []*entity.BusinessPlanDocument{doc.Clone()},
		current: doc.Clone(),
		status:  StatusClean,
	}

	if migrated {
		s.logger.Info("Migrated stored plan document")
		s.mu.Lock()
		s.scheduleSaveLocked()
		s.mu.Unlock()
	}

	return s, nil
}

// PlanID returns the plan the store holds.
func (s *Store) PlanID() string {
	return s.planID
}

// Current returns a copy of the current document.
func (s *Store) Current() *entity.BusinessPlanDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// State returns the store's current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		PlanID:        s.planID,
		Status:        s.status,
		CanUndo:       s.pointer > 0,
		CanRedo:       s.pointer < len(s.history)-1,
		Position:      s.pointer,
		HistoryLength: len(s.history),
		Generation:    s.generation,
		LastSavedAt:   s.lastSavedAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Commit makes doc the current document. The redo future is discarded, the
// history is capped at the configured limit and a save is started.
func (s *Store) Commit(doc *entity.BusinessPlanDocument) (*entity.BusinessPlanDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.commitLocked(doc.Clone()), nil
}

// Mutate applies fn to a copy of the live current document and commits the
// result. Returning an error from fn leaves the store unchanged.
func (s *Store) Mutate(fn func(doc *entity.BusinessPlanDocument) error) (*entity.BusinessPlanDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	draft := s.current.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	return s.commitLocked(draft), nil
}

func (s *Store) commitLocked(doc *entity.BusinessPlanDocument) *entity.BusinessPlanDocument {
	doc.ID = s.planID
	doc.UpdatedAt = time.Now().UTC()

	// Build a fresh slice so snapshots handed out earlier never alias the
	// truncated redo future.
	kept := s.history[:s.pointer+1]
	if overflow := len(kept) + 1 - s.opts.HistoryLimit; overflow > 0 {
		kept = kept[overflow:]
	}
	history := make([]*entity.BusinessPlanDocument, 0, len(kept)+1)
	history = append(history, kept...)
	history = append(history, doc)

	s.history = history
	s.pointer = len(history) - 1
	s.current = doc.Clone()
	s.scheduleSaveLocked()
	return s.current.Clone()
}

// Undo steps back one snapshot. It reports false at the start of history.
func (s *Store) Undo() (*entity.BusinessPlanDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pointer == 0 {
		return s.current.Clone(), false
	}
	s.moveLocked(s.pointer - 1)
	return s.current.Clone(), true
}

// Redo steps forward one snapshot. It reports false at the end of history.
func (s *Store) Redo() (*entity.BusinessPlanDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pointer >= len(s.history)-1 {
		return s.current.Clone(), false
	}
	s.moveLocked(s.pointer + 1)
	return s.current.Clone(), true
}

func (s *Store) moveLocked(to int) {
	s.pointer = to
	restored := s.history[to].Clone()
	if rows, changed := projection.Reconcile(restored.MonthlyProjections); changed {
		restored.MonthlyProjections = rows
		s.logger.Warn("Reconciled stale projections on restored snapshot", "position", to)
	}
	if rows, changed := projection.Reconcile(restored.YearlyProjections); changed {
		restored.YearlyProjections = rows
	}
	s.current = restored
	s.scheduleSaveLocked()
}

// scheduleSaveLocked marks the store dirty and starts a save of the current
// document under a new generation. Any pending retry is superseded.
func (s *Store) scheduleSaveLocked() {
	s.cancelRetryLocked()
	s.generation++
	s.status = StatusDirty

	gen := s.generation
	doc := s.current.Clone()
	s.wg.Add(1)
	go s.save(gen, doc, 1)
}

func (s *Store) cancelRetryLocked() {
	if s.retryTimer != nil && s.retryTimer.Stop() {
		s.wg.Done()
	}
	s.retryTimer = nil
}

// save writes one generation of the document. It runs on its own goroutine
// and is accounted for in s.wg.
func (s *Store) save(gen uint64, doc *entity.BusinessPlanDocument, attempt int) {
	defer s.wg.Done()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.status = StatusPersisting
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := s.port.Save(ctx, s.planID, doc)
	elapsed := time.Since(start)

	if s.opts.OnSaveResult != nil {
		s.opts.OnSaveResult(s.planID, attempt, elapsed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		if gen == s.generation {
			s.markCleanLocked()
		}
		return
	}

	s.logger.Error("Failed to save plan",
		"error", err,
		"generation", gen,
		"attempt", attempt,
	)

	if gen != s.generation {
		return
	}
	s.status = StatusDirty
	s.lastErr = err

	if attempt >= s.opts.MaxSaveAttempts || s.closed {
		s.logger.Warn("Giving up automatic saves until the next edit or flush", "attempts", attempt)
		return
	}

	delay := s.opts.RetryBaseDelay << (attempt - 1)
	s.wg.Add(1)
	s.retryTimer = time.AfterFunc(delay, func() {
		s.save(gen, doc, attempt+1)
	})
}

func (s *Store) markCleanLocked() {
	now := time.Now().UTC()
	s.status = StatusClean
	s.lastErr = nil
	s.lastSavedAt = &now
}

// Flush saves the current document synchronously if it has unsaved changes.
// It is the manual retry after automatic attempts are exhausted.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.cancelRetryLocked()
	if s.status == StatusClean {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	doc := s.current.Clone()
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if gen == s.generation {
		s.status = StatusPersisting
	}
	s.mu.Unlock()

	start := time.Now()
	err := s.port.Save(ctx, s.planID, doc)
	if s.opts.OnSaveResult != nil {
		s.opts.OnSaveResult(s.planID, 0, time.Since(start), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if gen == s.generation {
			s.status = StatusDirty
			s.lastErr = err
		}
		return domainerror.NewPlanError(domainerror.ErrCodePlanPersistence,
			fmt.Sprintf("failed to save plan %s", s.planID), err)
	}
	if gen == s.generation {
		s.markCleanLocked()
	}
	return nil
}

// Wait blocks until all in-flight saves and scheduled retries have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close stops scheduling retries, waits for in-flight saves and flushes any
// unsaved changes.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.cancelRetryLocked()
	s.mu.Unlock()

	s.wg.Wait()
	return s.Flush(ctx)
}

// Delete runs remove while no save can reach the port and closes the store
// only if remove succeeds. On failure the store stays open with its unsaved
// edits and pending saves intact.
func (s *Store) Delete(ctx context.Context, remove func(ctx context.Context) error) error {
	s.saveMu.Lock()
	if err := remove(ctx); err != nil {
		s.saveMu.Unlock()
		return err
	}

	s.mu.Lock()
	s.closed = true
	s.generation++
	s.cancelRetryLocked()
	s.mu.Unlock()
	s.saveMu.Unlock()

	s.wg.Wait()
	return nil
}

// retireIfClean closes the store if every edit has been saved. A store with
// unsaved changes is left untouched.
func (s *Store) retireIfClean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusClean {
		return false
	}
	s.closed = true
	s.cancelRetryLocked()
	return true
}

// OwnerID returns the owner of the plan without copying the document.
func (s *Store) OwnerID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.OwnerID
}
