// Package model holds the gorm rows and their mapping to domain entities.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/business-planner/backend/internal/domain/entity"
)

// PlanModel represents the plans table in the database.
// The whole document is kept in a single JSON column.
type PlanModel struct {
	ID        string         `gorm:"type:varchar(64);primaryKey"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for the PlanModel.
func (PlanModel) TableName() string {
	return "plans"
}

// ToEntity decodes the stored document.
func (m *PlanModel) ToEntity() (*entity.BusinessPlanDocument, error) {
	var doc entity.BusinessPlanDocument
	if err := json.Unmarshal(m.Document, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", m.ID, err)
	}
	doc.ID = m.ID
	doc.OwnerID = m.OwnerID
	return &doc, nil
}

// ToSummary converts a PlanModel to a list entry.
func (m *PlanModel) ToSummary() *entity.PlanSummary {
	return &entity.PlanSummary{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PlanFromEntity creates a PlanModel from a plan document.
func PlanFromEntity(doc *entity.BusinessPlanDocument) (*PlanModel, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan %s: %w", doc.ID, err)
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return &PlanModel{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Title:     doc.Title,
		Document:  datatypes.JSON(data),
		UpdatedAt: updatedAt,
	}, nil
}

// PlanVersionModel represents the plan_versions table in the database.
type PlanVersionModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	PlanID    string         `gorm:"type:varchar(64);not null;index"`
	AuthorID  uuid.UUID      `gorm:"type:uuid"`
	Sections  pq.StringArray `gorm:"type:text"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for the PlanVersionModel.
func (PlanVersionModel) TableName() string {
	return "plan_versions"
}

// ToEntity converts a PlanVersionModel to a domain BusinessPlanVersion entity.
func (m *PlanVersionModel) ToEntity() (*entity.BusinessPlanVersion, error) {
	var doc entity.BusinessPlanDocument
	if err := json.Unmarshal(m.Document, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode plan version %s: %w", m.ID, err)
	}
	return &entity.BusinessPlanVersion{
		ID:        m.ID,
		PlanID:    m.PlanID,
		AuthorID:  m.AuthorID,
		Sections:  []string(m.Sections),
		Document:  &doc,
		CreatedAt: m.CreatedAt,
	}, nil
}

// PlanVersionFromEntity creates a PlanVersionModel from a domain BusinessPlanVersion entity.
func PlanVersionFromEntity(v *entity.BusinessPlanVersion) (*PlanVersionModel, error) {
	data, err := json.Marshal(v.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan version %s: %w", v.ID, err)
	}
	return &PlanVersionModel{
		ID:        v.ID,
		PlanID:    v.PlanID,
		AuthorID:  v.AuthorID,
		Sections:  pq.StringArray(v.Sections),
		Document:  datatypes.JSON(data),
		CreatedAt: v.CreatedAt,
	}, nil
}
