package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorChain(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := NewError(CodeStorage, "failed to load session", cause)
	annotated := fmt.Errorf("intake: %w", wrapped)

	if !Is(annotated, CodeStorage) {
		t.Fatal("code must survive wrapping")
	}
	if Is(annotated, CodeNotFound) {
		t.Fatal("mismatched code must not match")
	}
	if !errors.Is(annotated, cause) {
		t.Fatal("cause must stay reachable through Unwrap")
	}
	if got := wrapped.Error(); got != "storage: failed to load session: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewValidationError("bad input", nil)); got != CodeValidation {
		t.Fatalf("CodeOf = %s, want validation", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("CodeOf plain = %s, want internal", got)
	}
	if Is(nil, CodeInternal) {
		t.Fatal("nil carries no code")
	}
}
