package competitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
)

type memoryPlans struct {
	mu   sync.Mutex
	docs map[string]*entity.BusinessPlanDocument
}

func (m *memoryPlans) Load(ctx context.Context, planID string) (*entity.BusinessPlanDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[planID]
	if !ok {
		return nil, domainerror.ErrPlanNotFound
	}
	return doc.Clone(), nil
}

func (m *memoryPlans) Save(ctx context.Context, planID string, doc *entity.BusinessPlanDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[planID] = doc.Clone()
	return nil
}

// fakeAI returns canned results. When gate is set, calls signal started and
// then block until gate is closed.
type fakeAI struct {
	available bool
	scan      *adapter.MarketScanResult
	scanErr   error
	diveErr   map[string]error
	gate      chan struct{}
	started   chan struct{}

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeAI) IsAvailable() bool { return f.available }

func (f *fakeAI) wait() {
	if f.gate == nil {
		return
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	<-f.gate
}

func (f *fakeAI) MarketScan(ctx context.Context, request *adapter.MarketScanRequest) (*adapter.MarketScanResult, error) {
	f.calls.Add(1)
	f.wait()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.scan, nil
}

func (f *fakeAI) CompetitorDeepDive(ctx context.Context, request *adapter.DeepDiveRequest) (*adapter.DeepDiveResult, error) {
	f.calls.Add(1)
	f.wait()
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if err := f.diveErr[request.Competitor.Name]; err != nil {
		return nil, err
	}
	return &adapter.DeepDiveResult{
		Analysis:   "A detailed look at " + request.Competitor.Name + " covering pricing, positioning and product depth.",
		Features:   []string{"Mobile app"},
		Weaknesses: []string{"Slow support"},
	}, nil
}

type fixture struct {
	registry *planstate.Registry
	owner    uuid.UUID
	planID   string
}

func newFixture(competitors ...entity.Competitor) *fixture {
	owner := uuid.New()
	doc := plandata.Default(owner, "Bookkeeping studio")
	doc.Competitors = competitors
	store := &memoryPlans{docs: map[string]*entity.BusinessPlanDocument{doc.ID: doc.Clone()}}
	return &fixture{
		registry: planstate.NewRegistry(store, planstate.Options{RetryBaseDelay: time.Millisecond}),
		owner:    owner,
		planID:   doc.ID,
	}
}

func (f *fixture) current() *entity.BusinessPlanDocument {
	s, _ := f.registry.Get(context.Background(), f.planID)
	return s.Current()
}

func (f *fixture) close() {
	_ = f.registry.Close(context.Background())
}

var errRateLimited = errors.New("googleapi: Error 429: resource exhausted")
