package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("amount must be nonzero"), KindValidation},
		{"not found", NotFound("booking %s", "bkg_1"), KindNotFound},
		{"unauthorized", Unauthorized("not the provider"), KindUnauthorized},
		{"conflict", Conflict("request already matched"), KindConflict},
		{"transient", Transient(errors.New("serialization failure")), KindTransient},
		{"internal", Internal(errors.New("boom")), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"wrapped", fmt.Errorf("complete booking: %w", Conflict("not pending")), KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(Transient(errors.New("deadlock detected"))) {
		t.Error("expected transient error to be retryable")
	}
	if IsTransient(Conflict("already released")) {
		t.Error("conflict must not be retryable")
	}
}

func TestMessageDoesNotLeakCause(t *testing.T) {
	err := Transient(errors.New("pq: deadlock detected on relation escrow"))
	if err.Message != "temporary store failure, retry the operation" {
		t.Errorf("unexpected client message %q", err.Message)
	}
	// The cause stays reachable for logging.
	if err.Unwrap() == nil {
		t.Error("expected wrapped cause")
	}
}

func TestKindString(t *testing.T) {
	if KindConflict.String() != "conflict" {
		t.Errorf("got %q", KindConflict.String())
	}
	if KindInternal.String() != "internal_error" {
		t.Errorf("got %q", KindInternal.String())
	}
}
