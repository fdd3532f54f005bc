package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/integration/persistence/model"
)

// MaxPlanVersions is the number of versions kept per plan.
const MaxPlanVersions = 50

// planRepository implements the adapter.PlanRepository interface.
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance.
func NewPlanRepository(db *gorm.DB) adapter.PlanRepository {
	return &planRepository{
		db: db,
	}
}

// Create stores a new plan and its first version.
func (r *planRepository) Create(ctx context.Context, doc *entity.BusinessPlanDocument) error {
	planModel, err := model.PlanFromEntity(doc)
	if err != nil {
		return err
	}
	planModel.CreatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(planModel).Error; err != nil {
			return err
		}
		return insertVersion(tx, doc, plandata.ChangedSections(nil, doc))
	})
}

// Load fetches the stored document for a plan.
func (r *planRepository) Load(ctx context.Context, planID string) (*entity.BusinessPlanDocument, error) {
	var planModel model.PlanModel
	result := r.db.WithContext(ctx).Where("id = ?", planID).First(&planModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrPlanNotFound
		}
		return nil, result.Error
	}
	return planModel.ToEntity()
}

// Owner returns the owner of a plan.
func (r *planRepository) Owner(ctx context.Context, planID string) (uuid.UUID, error) {
	var owners []uuid.UUID
	result := r.db.WithContext(ctx).
		Model(&model.PlanModel{}).
		Where("id = ?", planID).
		Limit(1).
		Pluck("owner_id", &owners)
	if result.Error != nil {
		return uuid.Nil, result.Error
	}
	if len(owners) == 0 {
		return uuid.Nil, domainerror.ErrPlanNotFound
	}
	return owners[0], nil
}

// Save stores the document and appends a version when it differs from the
// newest one. Saving an unchanged document is a no-op.
func (r *planRepository) Save(ctx context.Context, planID string, doc *entity.BusinessPlanDocument) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PlanModel
		if err := tx.Where("id = ?", planID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerror.ErrPlanNotFound
			}
			return err
		}

		stored := doc.Clone()
		stored.ID = planID
		stored.OwnerID = existing.OwnerID

		previous, err := latestVersion(tx, planID)
		if err != nil {
			return err
		}
		var previousDoc *entity.BusinessPlanDocument
		if previous != nil {
			previousDoc = previous.Document
		}
		sections := plandata.ChangedSections(previousDoc, stored)
		if previous != nil && len(sections) == 0 {
			return nil
		}

		planModel, err := model.PlanFromEntity(stored)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"title":      planModel.Title,
			"document":   planModel.Document,
			"updated_at": planModel.UpdatedAt,
		}
		if err := tx.Model(&model.PlanModel{}).Where("id = ?", planID).Updates(updates).Error; err != nil {
			return err
		}

		if err := insertVersion(tx, stored, sections); err != nil {
			return err
		}
		return trimVersions(tx, planID)
	})
}

// ListByOwner retrieves summaries of all plans owned by a user.
func (r *planRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.PlanSummary, error) {
	var planModels []model.PlanModel
	result := r.db.WithContext(ctx).
		Select("id", "owner_id", "title", "created_at", "updated_at").
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&planModels)
	if result.Error != nil {
		return nil, result.Error
	}

	plans := make([]*entity.PlanSummary, len(planModels))
	for i := range planModels {
		plans[i] = planModels[i].ToSummary()
	}
	return plans, nil
}

// Delete removes a plan and all of its versions.
func (r *planRepository) Delete(ctx context.Context, planID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&model.PlanVersionModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", planID).Delete(&model.PlanModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerror.ErrPlanNotFound
		}
		return nil
	})
}

// ListVersions retrieves the newest versions of a plan, newest first.
func (r *planRepository) ListVersions(ctx context.Context, planID string, limit int) ([]*entity.BusinessPlanVersion, error) {
	if limit <= 0 || limit > MaxPlanVersions {
		limit = MaxPlanVersions
	}

	var versionModels []model.PlanVersionModel
	result := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Limit(limit).
		Find(&versionModels)
	if result.Error != nil {
		return nil, result.Error
	}

	versions := make([]*entity.BusinessPlanVersion, 0, len(versionModels))
	for i := range versionModels {
		v, err := versionModels[i].ToEntity()
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// FindVersion retrieves a single version of a plan.
func (r *planRepository) FindVersion(ctx context.Context, planID string, versionID uuid.UUID) (*entity.BusinessPlanVersion, error) {
	var versionModel model.PlanVersionModel
	result := r.db.WithContext(ctx).
		Where("plan_id = ? AND id = ?", planID, versionID).
		First(&versionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrPlanVersionNotFound
		}
		return nil, result.Error
	}
	return versionModel.ToEntity()
}

func latestVersion(tx *gorm.DB, planID string) (*entity.BusinessPlanVersion, error) {
	var versionModel model.PlanVersionModel
	result := tx.Where("plan_id = ?", planID).Order("created_at DESC").Limit(1).Find(&versionModel)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return versionModel.ToEntity()
}

func insertVersion(tx *gorm.DB, doc *entity.BusinessPlanDocument, sections []string) error {
	versionModel, err := model.PlanVersionFromEntity(entity.NewBusinessPlanVersion(doc, sections))
	if err != nil {
		return err
	}
	if err := tx.Create(versionModel).Error; err != nil {
		return fmt.Errorf("failed to insert plan version: %w", err)
	}
	return nil
}

// trimVersions keeps only the newest MaxPlanVersions versions of a plan.
func trimVersions(tx *gorm.DB, planID string) error {
	var ids []string
	result := tx.Model(&model.PlanVersionModel{}).
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Pluck("id", &ids)
	if result.Error != nil {
		return result.Error
	}
	if len(ids) <= MaxPlanVersions {
		return nil
	}
	return tx.Where("id IN ?", ids[MaxPlanVersions:]).Delete(&model.PlanVersionModel{}).Error
}
