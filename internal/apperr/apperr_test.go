package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want error
	}{
		{Schema("missing required field: %s", "x"), ErrSchema},
		{Conflict("taken"), ErrConflict},
		{InvalidTransition("pending", "completed"), ErrInvalidTransition},
		{NotFound("gone"), ErrNotFound},
		{Storage(errors.New("reset"), "upload"), ErrStorage},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), ErrNotFound},
		{errors.New("plain"), nil},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	if got := InvalidTransition("pending", "completed").Error(); got != "invalid transition: pending -> completed" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Storage(errors.New("reset"), "upload %s", "a.png").Error(); got != "upload a.png: reset" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Storage(nil, "chunk rolled back").Error(); got != "chunk rolled back" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (&Error{Kind: ErrConflict}).Error(); got != "conflict" {
		t.Fatalf("unexpected message %q", got)
	}
}
