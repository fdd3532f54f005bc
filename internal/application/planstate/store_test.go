package planstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
)

// memoryPort is an in-memory adapter.PlanPersistence whose saves can be made
// to fail.
type memoryPort struct {
	mu       sync.Mutex
	docs     map[string]*entity.BusinessPlanDocument
	saves    int
	failures int // remaining saves to fail, -1 fails forever
}

func newMemoryPort(docs ...*entity.BusinessPlanDocument) *memoryPort {
	p := &memoryPort{docs: make(map[string]*entity.BusinessPlanDocument)}
	for _, d := range docs {
		p.docs[d.ID] = d.Clone()
	}
	return p
}

func (p *memoryPort) Load(ctx context.Context, planID string) (*entity.BusinessPlanDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.docs[planID]
	if !ok {
		return nil, domainerror.ErrPlanNotFound
	}
	return doc.Clone(), nil
}

func (p *memoryPort) Save(ctx context.Context, planID string, doc *entity.BusinessPlanDocument) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		return errors.New("database unavailable")
	}
	p.docs[planID] = doc.Clone()
	return nil
}

func (p *memoryPort) setFailures(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
}

func (p *memoryPort) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func (p *memoryPort) stored(planID string) *entity.BusinessPlanDocument {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.docs[planID].Clone()
}

func testOptions() Options {
	return Options{
		HistoryLimit:    50,
		MaxSaveAttempts: 3,
		RetryBaseDelay:  time.Millisecond,
		SaveTimeout:     time.Second,
	}
}

func openTestStore(t *testing.T) (*Store, *memoryPort) {
	t.Helper()
	doc := plandata.Default(uuid.New(), "Plan")
	port := newMemoryPort(doc)
	store, err := Open(context.Background(), port, doc.ID, testOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store, port
}

func withTitle(doc *entity.BusinessPlanDocument, title string) *entity.BusinessPlanDocument {
	next := doc.Clone()
	next.Title = title
	return next
}

func TestOpen(t *testing.T) {
	t.Run("unknown plan", func(t *testing.T) {
		_, err := Open(context.Background(), newMemoryPort(), "missing", testOptions())
		if !errors.Is(err, domainerror.ErrPlanNotFound) {
			t.Errorf("expected ErrPlanNotFound, got %v", err)
		}
	})

	t.Run("legacy document is migrated and saved back", func(t *testing.T) {
		doc := plandata.Default(uuid.New(), "Legacy")
		doc.ProductRoadmap = entity.LegacyRoadmap("Launch in spring")
		doc.MonthlyProjections = nil
		port := newMemoryPort(doc)

		store, err := Open(context.Background(), port, doc.ID, testOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		store.Wait()

		current := store.Current()
		if current.ProductRoadmap.IsLegacy() || current.ProductRoadmap.Len() != 1 {
			t.Errorf("expected migrated roadmap, got %+v", current.ProductRoadmap)
		}
		if len(current.MonthlyProjections) != 60 {
			t.Errorf("expected default projections, got %d rows", len(current.MonthlyProjections))
		}
		if port.stored(doc.ID).ProductRoadmap.IsLegacy() {
			t.Error("expected migrated document to be persisted")
		}
		if store.State().Status != StatusClean {
			t.Errorf("expected clean store, got %s", store.State().Status)
		}
	})

	t.Run("current document is not saved on open", func(t *testing.T) {
		store, port := openTestStore(t)
		store.Wait()
		if port.saveCount() != 0 {
			t.Errorf("expected no saves, got %d", port.saveCount())
		}
	})
}

func TestStore_CommitPersists(t *testing.T) {
	store, port := openTestStore(t)

	committed, err := store.Commit(withTitle(store.Current(), "Renamed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if committed.Title != "Renamed" {
		t.Errorf("expected committed title, got %q", committed.Title)
	}

	store.Wait()

	if got := port.stored(store.PlanID()).Title; got != "Renamed" {
		t.Errorf("expected stored title Renamed, got %q", got)
	}
	state := store.State()
	if state.Status != StatusClean {
		t.Errorf("expected clean, got %s", state.Status)
	}
	if state.LastSavedAt == nil {
		t.Error("expected last saved time")
	}
}

func TestStore_UndoRedo(t *testing.T) {
	store, _ := openTestStore(t)
	original := store.Current().Title

	store.Commit(withTitle(store.Current(), "A"))
	store.Commit(withTitle(store.Current(), "B"))

	doc, ok := store.Undo()
	if !ok || doc.Title != "A" {
		t.Fatalf("expected undo to A, got %q (%v)", doc.Title, ok)
	}
	doc, ok = store.Undo()
	if !ok || doc.Title != original {
		t.Fatalf("expected undo to original, got %q (%v)", doc.Title, ok)
	}
	if _, ok := store.Undo(); ok {
		t.Error("expected undo at the start of history to be a no-op")
	}

	doc, ok = store.Redo()
	if !ok || doc.Title != "A" {
		t.Fatalf("expected redo to A, got %q (%v)", doc.Title, ok)
	}

	t.Run("commit discards the redo future", func(t *testing.T) {
		store.Commit(withTitle(store.Current(), "C"))
		if _, ok := store.Redo(); ok {
			t.Error("expected redo to be unavailable after a new commit")
		}
		doc, _ := store.Undo()
		if doc.Title != "A" {
			t.Errorf("expected undo to A, got %q", doc.Title)
		}
	})

	store.Wait()
}

func TestStore_HistoryCap(t *testing.T) {
	store, _ := openTestStore(t)

	for i := 0; i < 60; i++ {
		store.Commit(withTitle(store.Current(), fmt.Sprintf("edit %d", i)))
	}

	state := store.State()
	if state.HistoryLength != 50 {
		t.Fatalf("expected 50 history entries, got %d", state.HistoryLength)
	}

	undos := 0
	for {
		if _, ok := store.Undo(); !ok {
			break
		}
		undos++
	}
	if undos != 49 {
		t.Errorf("expected 49 undos, got %d", undos)
	}
	if got := store.Current().Title; got != "edit 10" {
		t.Errorf("expected oldest kept snapshot to be edit 10, got %q", got)
	}

	store.Wait()
}

func TestStore_UndoReconcilesStaleSnapshot(t *testing.T) {
	store, _ := openTestStore(t)

	stale := store.Current()
	stale.MonthlyProjections[0].Profit = 1
	store.Commit(stale)
	store.Commit(withTitle(store.Current(), "later"))

	doc, _ := store.Undo()
	row := doc.MonthlyProjections[0]
	if row.Revenue != row.Expenses+row.Profit {
		t.Errorf("expected reconciled row, got %+v", row)
	}

	// History itself keeps the snapshot as committed.
	store.Redo()
	doc, _ = store.Undo()
	if doc.MonthlyProjections[0].Profit != row.Profit {
		t.Errorf("expected the same reconciled snapshot, got %+v", doc.MonthlyProjections[0])
	}

	store.Wait()
}

func TestStore_Mutate(t *testing.T) {
	store, _ := openTestStore(t)
	store.Commit(withTitle(store.Current(), "live title"))

	doc, err := store.Mutate(func(d *entity.BusinessPlanDocument) error {
		d.Competitors = append(d.Competitors, entity.Competitor{Name: "Acme"})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "live title" || len(doc.Competitors) != 1 {
		t.Errorf("expected merge on live state, got title %q with %d competitors", doc.Title, len(doc.Competitors))
	}

	before := store.State().HistoryLength
	_, err = store.Mutate(func(d *entity.BusinessPlanDocument) error {
		d.Title = "discarded"
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error from mutation")
	}
	if store.Current().Title != "live title" || store.State().HistoryLength != before {
		t.Error("failed mutation changed the store")
	}

	store.Wait()
}

func TestStore_SaveRetry(t *testing.T) {
	t.Run("transient failures are retried", func(t *testing.T) {
		store, port := openTestStore(t)
		port.setFailures(2)

		store.Commit(withTitle(store.Current(), "retried"))
		store.Wait()

		if port.saveCount() != 3 {
			t.Errorf("expected 3 save attempts, got %d", port.saveCount())
		}
		if store.State().Status != StatusClean {
			t.Errorf("expected clean after retry, got %s", store.State().Status)
		}
		if port.stored(store.PlanID()).Title != "retried" {
			t.Error("expected retried document to be stored")
		}
	})

	t.Run("exhausted retries leave the store dirty until flushed", func(t *testing.T) {
		store, port := openTestStore(t)
		port.setFailures(-1)

		store.Commit(withTitle(store.Current(), "unsaved"))
		store.Wait()

		state := store.State()
		if state.Status != StatusDirty {
			t.Fatalf("expected dirty, got %s", state.Status)
		}
		if state.LastError == "" {
			t.Error("expected last error to be recorded")
		}
		if port.saveCount() != 3 {
			t.Errorf("expected 3 attempts, got %d", port.saveCount())
		}
		if store.Current().Title != "unsaved" {
			t.Error("failed save must not roll back the edit")
		}

		if err := store.Flush(context.Background()); err == nil {
			t.Error("expected flush to fail while storage is down")
		}

		port.setFailures(0)
		if err := store.Flush(context.Background()); err != nil {
			t.Fatalf("unexpected flush error: %v", err)
		}
		if store.State().Status != StatusClean {
			t.Errorf("expected clean after flush, got %s", store.State().Status)
		}
		if port.stored(store.PlanID()).Title != "unsaved" {
			t.Error("expected flushed document to be stored")
		}
	})
}

func TestStore_NewestSaveWins(t *testing.T) {
	store, port := openTestStore(t)

	for i := 0; i < 20; i++ {
		store.Commit(withTitle(store.Current(), fmt.Sprintf("edit %d", i)))
	}
	store.Wait()

	if got := port.stored(store.PlanID()).Title; got != "edit 19" {
		t.Errorf("expected newest edit to be stored, got %q", got)
	}
	if store.State().Status != StatusClean {
		t.Errorf("expected clean, got %s", store.State().Status)
	}
}

func TestStore_Close(t *testing.T) {
	store, port := openTestStore(t)
	port.setFailures(-1)
	store.Commit(withTitle(store.Current(), "closing"))
	store.Wait()
	port.setFailures(0)

	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if port.stored(store.PlanID()).Title != "closing" {
		t.Error("expected close to flush unsaved changes")
	}
	if _, err := store.Commit(store.Current()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}
