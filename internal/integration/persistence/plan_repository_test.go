package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/integration/persistence/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.PlanModel{},
		&model.PlanVersionModel{},
		&model.UserModel{},
		&model.RefreshTokenModel{},
		&model.PasswordResetTokenModel{},
		&model.EmailQueueModel{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func countVersions(t *testing.T, db *gorm.DB, planID string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&model.PlanVersionModel{}).Where("plan_id = ?", planID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count versions: %v", err)
	}
	return count
}

func TestPlanRepository_CreateAndLoad(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	doc := plandata.Default(uuid.New(), "Coffee shop")
	doc.ProductRoadmap = entity.StructuredRoadmap([]entity.RoadmapItem{
		{ID: "r1", Feature: "Loyalty app", Status: entity.RoadmapStatusPlanned, Quarter: "Q3", Source: entity.RoadmapSourceManual},
	})

	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	loaded, err := repo.Load(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to load plan: %v", err)
	}
	if loaded.Title != "Coffee shop" || loaded.OwnerID != doc.OwnerID {
		t.Errorf("unexpected plan: %q owned by %s", loaded.Title, loaded.OwnerID)
	}
	if len(loaded.MonthlyProjections) != 60 || loaded.MonthlyProjections[0].Revenue != 10000 {
		t.Error("projections did not survive the round trip")
	}
	if items := loaded.ProductRoadmap.Items(); len(items) != 1 || items[0].Feature != "Loyalty app" {
		t.Errorf("unexpected roadmap: %+v", items)
	}
	if got := countVersions(t, db, doc.ID); got != 1 {
		t.Errorf("expected 1 initial version, got %d", got)
	}

	t.Run("unknown plan", func(t *testing.T) {
		if _, err := repo.Load(ctx, "missing"); !errors.Is(err, domainerror.ErrPlanNotFound) {
			t.Errorf("expected ErrPlanNotFound, got %v", err)
		}
	})

	t.Run("legacy roadmap decodes as legacy", func(t *testing.T) {
		legacy := &model.PlanModel{
			ID:        "legacy-plan",
			OwnerID:   uuid.New(),
			Title:     "Old",
			Document:  datatypes.JSON(`{"title":"Old","productRoadmap":"Ship v1 in March"}`),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := db.Create(legacy).Error; err != nil {
			t.Fatalf("failed to insert legacy plan: %v", err)
		}
		loaded, err := repo.Load(ctx, "legacy-plan")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !loaded.ProductRoadmap.IsLegacy() || loaded.ProductRoadmap.LegacyText() != "Ship v1 in March" {
			t.Errorf("expected legacy roadmap, got %+v", loaded.ProductRoadmap)
		}
	})
}

func TestPlanRepository_Save(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	doc := plandata.Default(uuid.New(), "Bakery")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	edited := doc.Clone()
	edited.MissionStatement = "Fresh bread every morning."
	if err := repo.Save(ctx, doc.ID, edited); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	versions, err := repo.ListVersions(ctx, doc.ID, 10)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if len(versions[0].Sections) != 1 || versions[0].Sections[0] != plandata.SectionNarrative {
		t.Errorf("expected newest version to record the narrative change, got %v", versions[0].Sections)
	}
	if versions[0].Document.MissionStatement != "Fresh bread every morning." {
		t.Error("expected newest version first")
	}

	t.Run("saving the same document is idempotent", func(t *testing.T) {
		if err := repo.Save(ctx, doc.ID, edited); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if got := countVersions(t, db, doc.ID); got != 2 {
			t.Errorf("expected 2 versions, got %d", got)
		}
	})

	t.Run("owner cannot be changed through save", func(t *testing.T) {
		hijack := edited.Clone()
		hijack.OwnerID = uuid.New()
		hijack.Title = "Hijacked"
		if err := repo.Save(ctx, doc.ID, hijack); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		loaded, _ := repo.Load(ctx, doc.ID)
		if loaded.OwnerID != doc.OwnerID {
			t.Error("owner changed")
		}
	})

	t.Run("unknown plan", func(t *testing.T) {
		if err := repo.Save(ctx, "missing", edited); !errors.Is(err, domainerror.ErrPlanNotFound) {
			t.Errorf("expected ErrPlanNotFound, got %v", err)
		}
	})
}

func TestPlanRepository_VersionCap(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	doc := plandata.Default(uuid.New(), "Gym")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	for i := 0; i < 60; i++ {
		next := doc.Clone()
		next.Title = fmt.Sprintf("Gym %d", i)
		if err := repo.Save(ctx, doc.ID, next); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	if got := countVersions(t, db, doc.ID); got != MaxPlanVersions {
		t.Errorf("expected %d versions, got %d", MaxPlanVersions, got)
	}
	versions, err := repo.ListVersions(ctx, doc.ID, 0)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if versions[0].Document.Title != "Gym 59" {
		t.Errorf("expected newest version first, got %q", versions[0].Document.Title)
	}
	if versions[len(versions)-1].Document.Title != "Gym 10" {
		t.Errorf("expected oldest kept version Gym 10, got %q", versions[len(versions)-1].Document.Title)
	}
}

func TestPlanRepository_ListFindDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first := plandata.Default(owner, "First")
	second := plandata.Default(owner, "Second")
	other := plandata.Default(uuid.New(), "Other")
	for _, d := range []*entity.BusinessPlanDocument{first, second, other} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("failed to create plan: %v", err)
		}
	}

	plans, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("failed to list plans: %v", err)
	}
	if len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}

	gotOwner, err := repo.Owner(ctx, other.ID)
	if err != nil {
		t.Fatalf("failed to look up owner: %v", err)
	}
	if gotOwner != other.OwnerID {
		t.Errorf("expected owner %s, got %s", other.OwnerID, gotOwner)
	}
	if _, err := repo.Owner(ctx, "missing"); !errors.Is(err, domainerror.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}

	versions, _ := repo.ListVersions(ctx, first.ID, 1)
	found, err := repo.FindVersion(ctx, first.ID, versions[0].ID)
	if err != nil {
		t.Fatalf("failed to find version: %v", err)
	}
	if found.Document.Title != "First" {
		t.Errorf("unexpected version document: %q", found.Document.Title)
	}
	if _, err := repo.FindVersion(ctx, second.ID, versions[0].ID); !errors.Is(err, domainerror.ErrPlanVersionNotFound) {
		t.Errorf("expected ErrPlanVersionNotFound for another plan's version, got %v", err)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if got := countVersions(t, db, first.ID); got != 0 {
		t.Errorf("expected versions to be removed, got %d", got)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, domainerror.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}
