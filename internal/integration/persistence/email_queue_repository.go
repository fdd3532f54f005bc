package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/persistence/model"
)

type emailQueueRepository struct {
	db *gorm.DB
}

func NewEmailQueueRepository(db *gorm.DB) adapter.EmailQueueRepository {
	return &emailQueueRepository{db: db}
}

func (r *emailQueueRepository) Create(ctx context.Context, job *entity.EmailJob) error {
	if err := r.db.WithContext(ctx).Create(model.EmailJobFromEntity(job)).Error; err != nil {
		return domainerror.NewEmailError(domainerror.ErrCodeEmailQueueFailed, "failed to queue email", err)
	}
	return nil
}

// ClaimPendingJobs moves up to limit due jobs to processing, oldest schedule
// first. A job only counts as claimed when its pending row was updated here.
func (r *emailQueueRepository) ClaimPendingJobs(ctx context.Context, limit int) ([]*entity.EmailJob, error) {
	var claimed []*entity.EmailJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []model.EmailQueueModel
		err := tx.Where("status = ? AND scheduled_at <= ?", entity.EmailStatusPending, time.Now().UTC()).
			Order("scheduled_at ASC").
			Limit(limit).
			Find(&due).Error
		if err != nil {
			return err
		}

		for i := range due {
			job := due[i].ToEntity()
			res := tx.Model(&model.EmailQueueModel{}).
				Where("id = ? AND status = ?", job.ID, entity.EmailStatusPending).
				Update("status", entity.EmailStatusProcessing)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				job.MarkProcessing()
				claimed = append(claimed, job)
			}
		}
		return nil
	})
	return claimed, err
}

func (r *emailQueueRepository) Update(ctx context.Context, job *entity.EmailJob) error {
	return r.db.WithContext(ctx).Save(model.EmailJobFromEntity(job)).Error
}

func (r *emailQueueRepository) GetByRecipient(ctx context.Context, email string) ([]*entity.EmailJob, error) {
	var rows []model.EmailQueueModel
	if err := r.db.WithContext(ctx).Where("recipient_email = ?", email).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	jobs := make([]*entity.EmailJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].ToEntity())
	}
	return jobs, nil
}

// PurgeSent deletes sent jobs processed more than olderThan ago.
func (r *emailQueueRepository) PurgeSent(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", entity.EmailStatusSent, time.Now().UTC().Add(-olderThan)).
		Delete(&model.EmailQueueModel{})
	return res.RowsAffected, res.Error
}
