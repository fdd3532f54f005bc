package entity

import (
	"time"

	"github.com/google/uuid"
)

// BusinessPlanVersion is an immutable snapshot of a plan.
type BusinessPlanVersion struct {
	ID        uuid.UUID
	PlanID    string
	AuthorID  uuid.UUID
	Sections  []string // plan sections that changed relative to the previous version
	Document  *BusinessPlanDocument
	CreatedAt time.Time
}

// NewBusinessPlanVersion snapshots a document.
func NewBusinessPlanVersion(doc *BusinessPlanDocument, sections []string) *BusinessPlanVersion {
	return &BusinessPlanVersion{
		ID:        uuid.New(),
		PlanID:    doc.ID,
		AuthorID:  doc.LastEditedBy,
		Sections:  sections,
		Document:  doc.Clone(),
		CreatedAt: time.Now().UTC(),
	}
}
