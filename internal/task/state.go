package task

import (
	"github.com/lingocrowd/contribution_control/internal/apperr"
)

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusAssigned: {},
	},
	StatusAssigned: {
		StatusCompleted:          {},
		StatusRejected:           {},
		StatusRejectedTranscript: {},
	},
	StatusPendingValidation: {
		StatusCompleted:          {},
		StatusRejected:           {},
		StatusRejectedTranscript: {},
	},
	StatusRejected: {
		StatusPendingValidation: {},
	},
	StatusRejectedTranscript: {
		StatusPendingValidation: {},
	},
	StatusCompleted: {},
}

// RejectionKindFor returns the rejection state used by tasks of type t.
// Transcription review keeps its own vocabulary.
func RejectionKindFor(t Type) Status {
	if t == TypeTranscription {
		return StatusRejectedTranscript
	}
	return StatusRejected
}

// ValidStatuses lists the state set of a task type.
func ValidStatuses(t Type) []Status {
	return []Status{
		StatusPending,
		StatusAssigned,
		StatusPendingValidation,
		StatusCompleted,
		RejectionKindFor(t),
	}
}

func IsValidStatus(t Type, s Status) bool {
	for _, candidate := range ValidStatuses(t) {
		if candidate == s {
			return true
		}
	}
	return false
}

// ValidateTransition checks from -> to against the transition table and the
// state set of the task type.
func ValidateTransition(t Type, from, to Status) error {
	if !IsValidStatus(t, from) || !IsValidStatus(t, to) {
		return apperr.InvalidTransition(string(from), string(to))
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return apperr.InvalidTransition(string(from), string(to))
	}
	return nil
}
