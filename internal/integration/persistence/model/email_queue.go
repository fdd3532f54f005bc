package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
)

// EmailQueueModel mirrors entity.EmailJob field for field. Due jobs are
// found through the (status, scheduled_at) index.
type EmailQueueModel struct {
	ID             uuid.UUID                `gorm:"type:uuid;primaryKey"`
	TemplateType   entity.EmailTemplateType `gorm:"type:varchar(50);not null"`
	RecipientEmail string                   `gorm:"type:varchar(255);not null;index"`
	RecipientName  string                   `gorm:"type:varchar(255)"`
	Subject        string                   `gorm:"type:varchar(500);not null"`
	TemplateData   map[string]interface{}   `gorm:"type:text;serializer:json"`
	Status         entity.EmailStatus       `gorm:"type:varchar(20);not null;default:'pending';index:idx_email_queue_due,priority:1"`
	Attempts       int                      `gorm:"not null;default:0"`
	MaxAttempts    int                      `gorm:"not null;default:3"`
	LastError      string                   `gorm:"type:text"`
	ResendID       string                   `gorm:"type:varchar(100)"`
	CreatedAt      time.Time                `gorm:"not null"`
	ScheduledAt    time.Time                `gorm:"not null;index:idx_email_queue_due,priority:2"`
	ProcessedAt    *time.Time
}

func (EmailQueueModel) TableName() string { return "email_queue" }

func (m *EmailQueueModel) ToEntity() *entity.EmailJob {
	job := entity.EmailJob(*m)
	if job.TemplateData == nil {
		job.TemplateData = map[string]interface{}{}
	}
	return &job
}

func EmailJobFromEntity(job *entity.EmailJob) *EmailQueueModel {
	m := EmailQueueModel(*job)
	return &m
}
