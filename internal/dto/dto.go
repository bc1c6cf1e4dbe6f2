package dto

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lingocrowd/contribution_control/internal/ingest"
)

type CreateProjectRequest struct {
	Name            string   `json:"name" validate:"notblank"`
	Type            string   `json:"type" validate:"required,oneof=asr tts transcription translation"`
	SourceLanguage  string   `json:"source_language"`
	TargetLanguages []string `json:"target_languages"`
}

type CreateTaskRequest struct {
	Type      string          `json:"type" validate:"required,oneof=asr tts transcription translation"`
	Language  string          `json:"language" validate:"notblank"`
	Priority  string          `json:"priority" validate:"omitempty,oneof=low medium high"`
	ProjectID string          `json:"project_id" validate:"omitempty,uuid"`
	Content   json.RawMessage `json:"content" validate:"required"`
}

// SubmitRequest is used for both first submissions and resubmissions.
type SubmitRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type ReviewRequest struct {
	IsApproved *bool  `json:"is_approved" validate:"required"`
	Comment    string `json:"comment"`
}

type BatchResponse struct {
	BatchID      uuid.UUID          `json:"batch_id"`
	CreatedCount int                `json:"created_count"`
	ErrorCount   int                `json:"error_count"`
	Created      []uuid.UUID        `json:"created"`
	Errors       []ingest.ItemError `json:"errors"`
}

func NewBatchResponse(result ingest.BatchResult) BatchResponse {
	created := result.Created
	if created == nil {
		created = []uuid.UUID{}
	}
	errs := result.Errors
	if errs == nil {
		errs = []ingest.ItemError{}
	}
	return BatchResponse{
		BatchID:      result.BatchID,
		CreatedCount: len(created),
		ErrorCount:   len(errs),
		Created:      created,
		Errors:       errs,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
