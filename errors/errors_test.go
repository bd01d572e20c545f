package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// --- Unit Tests ---

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "workflow missing")

	if err.Code() != ErrCodeNotFound {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeNotFound)
	}
	if err.Category() != CategoryPermanent {
		t.Errorf("Category() = %v, want %v", err.Category(), CategoryPermanent)
	}
	if err.Retryable() {
		t.Error("not-found errors should not be retryable")
	}
	if err.Error() != "workflow missing" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDefaultCategories(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeTimeout, CategoryTransient},
		{ErrCodeDeliveryFailed, CategoryTransient},
		{ErrCodeDuplicateID, CategoryPermanent},
		{ErrCodeValidationFailed, CategoryPermanent},
		{ErrCodeCapabilityFailed, CategoryPermanent},
		{ErrCodeSubscriberPanic, CategoryInternal},
		{ErrorCode("BOGUS"), CategoryInternal},
	}

	for _, tt := range tests {
		if got := tt.code.DefaultCategory(); got != tt.want {
			t.Errorf("%s.DefaultCategory() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	err := New(ErrCodeCapabilityFailed, "summarize failed",
		WithAgentID("analyst-01"),
		WithExecutionID("exec-42"),
		WithMetadata("step", "summarize"),
		WithRetryable(true))

	if err.AgentID() != "analyst-01" {
		t.Errorf("AgentID() = %q", err.AgentID())
	}
	if err.ExecutionID() != "exec-42" {
		t.Errorf("ExecutionID() = %q", err.ExecutionID())
	}
	if err.Metadata()["step"] != "summarize" {
		t.Errorf("Metadata() = %v", err.Metadata())
	}
	if !err.Retryable() {
		t.Error("WithRetryable(true) should override category default")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("disk full")
	wrapped := Wrap(base, "persisting registry")

	if wrapped.Code() != ErrCodeInternal {
		t.Errorf("Code() = %v, want INTERNAL for unknown cause", wrapped.Code())
	}
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("Error() = %q, want cause included", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match cause via errors.Is")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(ErrCodeDuplicateID, "agent exists", WithAgentID("a1"))
	wrapped := Wrap(inner, "registering agent")

	if wrapped.Code() != ErrCodeDuplicateID {
		t.Errorf("Code() = %v, want DUPLICATE_ID preserved", wrapped.Code())
	}
	if wrapped.AgentID() != "a1" {
		t.Errorf("AgentID() = %q, want preserved", wrapped.AgentID())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestIs(t *testing.T) {
	err := NotFound("workflow", "wf-1")

	if !Is(err, ErrCodeNotFound) {
		t.Error("Is should match NOT_FOUND")
	}
	if Is(err, ErrCodeDuplicateID) {
		t.Error("Is should not match a different code")
	}

	wrapped := Wrapf(err, "executing workflow %s", "wf-1")
	if !Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should match through wrapping")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	err := New(ErrCodeCapabilityFailed, "step failed",
		WithAgentID("a1"),
		WithExecutionID("e1"),
		WithMetadata("capability", "research"))

	data, merr := json.Marshal(err)
	if merr != nil {
		t.Fatalf("Marshal error: %v", merr)
	}

	var decoded Error
	if uerr := json.Unmarshal(data, &decoded); uerr != nil {
		t.Fatalf("Unmarshal error: %v", uerr)
	}

	if decoded.Code() != ErrCodeCapabilityFailed {
		t.Errorf("Code() = %v after round trip", decoded.Code())
	}
	if decoded.AgentID() != "a1" || decoded.ExecutionID() != "e1" {
		t.Errorf("ids lost in round trip: %q %q", decoded.AgentID(), decoded.ExecutionID())
	}
}
