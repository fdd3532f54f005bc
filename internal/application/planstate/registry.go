package planstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/business-planner/backend/internal/application/adapter"
)

// ErrNotOwner is returned by GetOwned when the plan belongs to someone else.
var ErrNotOwner = errors.New("plan belongs to another user")

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Registry holds one store per open plan. Stores are opened on first use and
// stay resident until they go idle, the plan is deleted or the registry is
// closed.
type Registry struct {
	port   adapter.PlanPersistence
	owners adapter.PlanOwnerLookup
	opts   Options
	group  singleflight.Group

	mu     sync.Mutex
	stores map[string]*entry
}

// NewRegistry creates a registry that opens stores through port. When port
// also implements adapter.PlanOwnerLookup, GetOwned checks ownership before
// loading a plan.
func NewRegistry(port adapter.PlanPersistence, opts Options) *Registry {
	owners, _ := port.(adapter.PlanOwnerLookup)
	return &Registry{
		port:   port,
		owners: owners,
		opts:   opts,
		stores: make(map[string]*entry),
	}
}

// Get returns the store for a plan, loading it on first access. Concurrent
// first accesses to one plan share a single load; other plans are never
// blocked by it.
func (r *Registry) Get(ctx context.Context, planID string) (*Store, error) {
	if s, ok := r.lookup(planID); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(planID, func() (any, error) {
		if s, ok := r.lookup(planID); ok {
			return s, nil
		}
		// The load is shared, so one caller giving up must not fail the rest.
		s, err := Open(context.WithoutCancel(ctx), r.port, planID, r.opts)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.stores[planID] = &entry{store: s, lastUsed: time.Now()}
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// GetOwned returns the store for a plan owned by ownerID. A plan that is not
// open yet is only loaded after the owner lookup confirms it.
func (r *Registry) GetOwned(ctx context.Context, planID string, ownerID uuid.UUID) (*Store, error) {
	if s, ok := r.lookup(planID); ok {
		if s.OwnerID() != ownerID {
			return nil, ErrNotOwner
		}
		return s, nil
	}

	if r.owners != nil {
		owner, err := r.owners.Owner(ctx, planID)
		if err != nil {
			return nil, err
		}
		if owner != ownerID {
			return nil, ErrNotOwner
		}
	}

	s, err := r.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if s.OwnerID() != ownerID {
		return nil, ErrNotOwner
	}
	return s, nil
}

func (r *Registry) lookup(planID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[planID]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.store, true
}

// Peek returns the store for a plan if it is already open.
func (r *Registry) Peek(planID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[planID]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Delete removes a plan through remove. An open store is closed only after
// remove succeeds, so a failed delete keeps its unsaved edits.
func (r *Registry) Delete(ctx context.Context, planID string, remove func(ctx context.Context) error) error {
	s, ok := r.Peek(planID)
	if !ok {
		return remove(ctx)
	}
	if err := s.Delete(ctx, remove); err != nil {
		return err
	}

	r.mu.Lock()
	if e, ok := r.stores[planID]; ok && e.store == s {
		delete(r.stores, planID)
	}
	r.mu.Unlock()
	return nil
}

// EvictIdle closes stores that have not been used for idle and have nothing
// left to save. It returns the number of stores closed.
func (r *Registry) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	var retired []*Store
	r.mu.Lock()
	for id, e := range r.stores {
		if e.lastUsed.After(cutoff) {
			continue
		}
		if e.store.retireIfClean() {
			delete(r.stores, id)
			retired = append(retired, e.store)
		}
	}
	r.mu.Unlock()

	for _, s := range retired {
		s.Wait()
	}
	return len(retired)
}

// StartEviction runs EvictIdle every interval until stop is closed.
func (r *Registry) StartEviction(interval, idle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.EvictIdle(idle); n > 0 {
					slog.Debug("Closed idle plan stores", "count", n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Close flushes and closes every open store.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range stores {
		if err := e.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
