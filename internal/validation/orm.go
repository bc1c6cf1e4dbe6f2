package validation

import (
	"time"

	"github.com/google/uuid"
)

// Validation is one reviewer decision. Rows are never updated; an undo is a
// new row.
type Validation struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ContributionID uuid.UUID `json:"contribution_id" gorm:"type:uuid;not null;index"`
	ReviewerID     uuid.UUID `json:"reviewer_id" gorm:"type:uuid;not null"`
	IsApproved     bool      `json:"is_approved" gorm:"not null"`
	Comment        string    `json:"comment" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;index"`
}
