package task

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeASR           Type = "asr"
	TypeTTS           Type = "tts"
	TypeTranscription Type = "transcription"
	TypeTranslation   Type = "translation"
)

var Types = []Type{TypeASR, TypeTTS, TypeTranscription, TypeTranslation}

func (t Type) Valid() bool {
	switch t {
	case TypeASR, TypeTTS, TypeTranscription, TypeTranslation:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusPending            Status = "pending"
	StatusAssigned           Status = "assigned"
	StatusPendingValidation  Status = "pending_validation"
	StatusCompleted          Status = "completed"
	StatusRejected           Status = "rejected"
	StatusRejectedTranscript Status = "rejected_transcript"
)

func (s Status) IsRejected() bool {
	return s == StatusRejected || s == StatusRejectedTranscript
}

type Task struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Type       Type           `json:"type" gorm:"type:text;not null;index"`
	Language   string         `json:"language" gorm:"type:text;not null;index"`
	Priority   Priority       `json:"priority" gorm:"type:text;not null"`
	Content    datatypes.JSON `json:"content" gorm:"not null"`
	Status     Status         `json:"status" gorm:"type:text;not null;index"`
	CreatedBy  uuid.UUID      `json:"created_by" gorm:"type:uuid;not null"`
	ProjectID  *uuid.UUID     `json:"project_id,omitempty" gorm:"type:uuid;index"`
	AssigneeID *uuid.UUID     `json:"assignee_id,omitempty" gorm:"type:uuid;index"`
	BatchID    *uuid.UUID     `json:"batch_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"not null"`
}

// Payload decodes the stored content into the record of the task's type.
func (t Task) Payload() (Content, error) {
	return DecodeContent(t.Type, t.Content)
}

// Project groups tasks under common language and type settings.
type Project struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string         `json:"name" gorm:"type:text;not null"`
	Type            Type           `json:"type" gorm:"type:text;not null"`
	SourceLanguage  string         `json:"source_language" gorm:"type:text"`
	TargetLanguages datatypes.JSON `json:"target_languages"`
	OwnerID         uuid.UUID      `json:"owner_id" gorm:"type:uuid;not null;index"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null"`
}
