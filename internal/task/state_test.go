package task

import (
	"errors"
	"testing"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

func TestValidateTransition_ValidMatrix(t *testing.T) {
	t.Parallel()

	valid := [][2]Status{
		{StatusPending, StatusAssigned},
		{StatusAssigned, StatusCompleted},
		{StatusAssigned, StatusRejected},
		{StatusPendingValidation, StatusCompleted},
		{StatusPendingValidation, StatusRejected},
		{StatusRejected, StatusPendingValidation},
	}
	for _, typ := range []Type{TypeTranslation, TypeTTS, TypeASR} {
		for _, pair := range valid {
			if err := ValidateTransition(typ, pair[0], pair[1]); err != nil {
				t.Fatalf("%s: expected valid transition %s->%s, got %v", typ, pair[0], pair[1], err)
			}
		}
	}
}

func TestValidateTransition_TranscriptionUsesOwnRejection(t *testing.T) {
	t.Parallel()

	if err := ValidateTransition(TypeTranscription, StatusAssigned, StatusRejectedTranscript); err != nil {
		t.Fatalf("expected assigned->rejected_transcript, got %v", err)
	}
	if err := ValidateTransition(TypeTranscription, StatusRejectedTranscript, StatusPendingValidation); err != nil {
		t.Fatalf("expected rejected_transcript->pending_validation, got %v", err)
	}
	if err := ValidateTransition(TypeTranscription, StatusAssigned, StatusRejected); err == nil {
		t.Fatalf("transcription must not use rejected")
	}
	if err := ValidateTransition(TypeTranslation, StatusAssigned, StatusRejectedTranscript); err == nil {
		t.Fatalf("translation must not use rejected_transcript")
	}
}

func TestValidateTransition_InvalidTransitions(t *testing.T) {
	t.Parallel()

	invalid := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPendingValidation},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusRejected},
		{StatusRejected, StatusCompleted},
		{StatusAssigned, StatusPending},
		{Status("archived"), StatusPending},
	}
	for _, pair := range invalid {
		err := ValidateTransition(TypeTranslation, pair[0], pair[1])
		if err == nil {
			t.Fatalf("expected invalid transition %s->%s", pair[0], pair[1])
		}
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Fatalf("expected InvalidTransition kind, got %v", err)
		}
	}
}

func TestRejectionKindFor(t *testing.T) {
	t.Parallel()

	if got := RejectionKindFor(TypeTranscription); got != StatusRejectedTranscript {
		t.Fatalf("transcription should reject as rejected_transcript, got %s", got)
	}
	for _, typ := range []Type{TypeTranslation, TypeTTS, TypeASR} {
		if got := RejectionKindFor(typ); got != StatusRejected {
			t.Fatalf("%s should reject as rejected, got %s", typ, got)
		}
	}
}
