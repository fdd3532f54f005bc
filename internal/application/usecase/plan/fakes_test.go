package plan

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
)

// fakePlanRepository keeps plans and versions in memory.
type fakePlanRepository struct {
	mu       sync.Mutex
	plans    map[string]*entity.BusinessPlanDocument
	versions map[string][]*entity.BusinessPlanVersion

	ownerLookups int
	loads        int
	deleteErr    error
	saveErr      error
}

func newFakePlanRepository() *fakePlanRepository {
	return &fakePlanRepository{
		plans:    make(map[string]*entity.BusinessPlanDocument),
		versions: make(map[string][]*entity.BusinessPlanVersion),
	}
}

func (r *fakePlanRepository) Create(ctx context.Context, doc *entity.BusinessPlanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[doc.ID] = doc.Clone()
	r.versions[doc.ID] = []*entity.BusinessPlanVersion{entity.NewBusinessPlanVersion(doc, nil)}
	return nil
}

func (r *fakePlanRepository) Load(ctx context.Context, planID string) (*entity.BusinessPlanDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	doc, ok := r.plans[planID]
	if !ok {
		return nil, domainerror.ErrPlanNotFound
	}
	return doc.Clone(), nil
}

func (r *fakePlanRepository) Owner(ctx context.Context, planID string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerLookups++
	doc, ok := r.plans[planID]
	if !ok {
		return uuid.Nil, domainerror.ErrPlanNotFound
	}
	return doc.OwnerID, nil
}

func (r *fakePlanRepository) Save(ctx context.Context, planID string, doc *entity.BusinessPlanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.plans[planID]; !ok {
		return domainerror.ErrPlanNotFound
	}
	r.plans[planID] = doc.Clone()
	// Same document twice records a single version, like the database repository.
	if all := r.versions[planID]; len(all) > 0 && reflect.DeepEqual(all[len(all)-1].Document, doc) {
		return nil
	}
	r.versions[planID] = append(r.versions[planID], entity.NewBusinessPlanVersion(doc, nil))
	return nil
}

func (r *fakePlanRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.PlanSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.PlanSummary
	for _, doc := range r.plans {
		if doc.OwnerID == ownerID {
			out = append(out, &entity.PlanSummary{ID: doc.ID, OwnerID: doc.OwnerID, Title: doc.Title, UpdatedAt: doc.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *fakePlanRepository) Delete(ctx context.Context, planID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.plans[planID]; !ok {
		return domainerror.ErrPlanNotFound
	}
	delete(r.plans, planID)
	delete(r.versions, planID)
	return nil
}

func (r *fakePlanRepository) ListVersions(ctx context.Context, planID string, limit int) ([]*entity.BusinessPlanVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.versions[planID]
	out := make([]*entity.BusinessPlanVersion, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakePlanRepository) FindVersion(ctx context.Context, planID string, versionID uuid.UUID) (*entity.BusinessPlanVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[planID] {
		if v.ID == versionID {
			return v, nil
		}
	}
	return nil, domainerror.ErrPlanVersionNotFound
}

func (r *fakePlanRepository) stored(planID string) *entity.BusinessPlanDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plans[planID].Clone()
}

var _ adapter.PlanRepository = (*fakePlanRepository)(nil)

type fakeUserRepository struct {
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domainerror.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domainerror.ErrUserNotFound
}

func (r *fakeUserRepository) Update(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

type fakeEmailService struct {
	shares []adapter.QueuePlanShareInput
	err    error
}

func (s *fakeEmailService) QueuePasswordResetEmail(ctx context.Context, input adapter.QueuePasswordResetInput) error {
	return s.err
}

func (s *fakeEmailService) QueuePlanShareEmail(ctx context.Context, input adapter.QueuePlanShareInput) error {
	if s.err != nil {
		return s.err
	}
	s.shares = append(s.shares, input)
	return nil
}

// fixture wires a registry over the fake repository with fast retries.
type fixture struct {
	repo     *fakePlanRepository
	registry *planstate.Registry
	owner    uuid.UUID
	plan     *entity.BusinessPlanDocument
}

func newFixture() *fixture {
	repo := newFakePlanRepository()
	owner := uuid.New()
	doc := plandata.Default(owner, "Coffee roastery")
	_ = repo.Create(context.Background(), doc)
	registry := planstate.NewRegistry(repo, planstate.Options{
		HistoryLimit:    50,
		MaxSaveAttempts: 2,
		RetryBaseDelay:  time.Millisecond,
		SaveTimeout:     time.Second,
	})
	return &fixture{repo: repo, registry: registry, owner: owner, plan: doc}
}

func (f *fixture) close() {
	_ = f.registry.Close(context.Background())
}
