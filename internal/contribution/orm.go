package contribution

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPendingValidation  Status = "pending_validation"
	StatusFinalized          Status = "finalized"
	StatusRejected           Status = "rejected"
	StatusRejectedTranscript Status = "rejected_transcript"
)

// ActiveStatuses are the non-terminal states. A (task, worker) pair has at
// most one contribution in any of them.
var ActiveStatuses = []Status{StatusPendingValidation, StatusRejected, StatusRejectedTranscript}

var RejectedStatuses = []Status{StatusRejected, StatusRejectedTranscript}

func (s Status) IsRejected() bool {
	return s == StatusRejected || s == StatusRejectedTranscript
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingValidation, StatusFinalized, StatusRejected, StatusRejectedTranscript:
		return true
	}
	return false
}

type Contribution struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TaskID    uuid.UUID      `json:"task_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_contribution_active,where:status <> 'finalized'"`
	WorkerID  uuid.UUID      `json:"worker_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_contribution_active,where:status <> 'finalized'"`
	Payload   datatypes.JSON `json:"payload" gorm:"not null"`
	Status    Status         `json:"status" gorm:"type:text;not null;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}
