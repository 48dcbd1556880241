package domainerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "member not found")
		if !HasCode(err, CodeNotFound) {
			t.Fatalf("expected CodeNotFound on %v", err)
		}
		if HasCode(err, CodeConflict) {
			t.Fatalf("did not expect CodeConflict on %v", err)
		}
	})

	t.Run("matches code through wrapping", func(t *testing.T) {
		inner := New(CodeConflict, "email already registered")
		outer := Wrap(inner, CodeInternal, "create member failed")
		if !HasCode(outer, CodeConflict) {
			t.Fatalf("expected inner CodeConflict to be reachable")
		}
		if !HasCode(outer, CodeInternal) {
			t.Fatalf("expected outer CodeInternal to be reachable")
		}
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("op failed: %w", New(CodeForbidden, "role insufficient"))
		if !HasCode(err, CodeForbidden) {
			t.Fatalf("expected CodeForbidden through fmt.Errorf wrap")
		}
	})
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeValidation, "amount must be positive")); got != CodeValidation {
		t.Fatalf("expected CodeValidation, got %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("uncoded errors must surface as CodeInternal, got %s", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CodeInternal, "noop") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must remain reachable via errors.Is")
	}
}
