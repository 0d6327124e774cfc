package validate

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
	Kind  string `validate:"omitempty,oneof=a b"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	if err := v.Struct(sample{Name: "Jane", Email: "jane@example.com", Kind: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_TranslatedMessages(t *testing.T) {
	v := New()
	err := v.Struct(sample{Name: "", Email: "not-an-email", Kind: "c"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fieldErrs, ok := err.(FieldErrors)
	if !ok {
		t.Fatalf("expected FieldErrors, got %T", err)
	}
	if len(fieldErrs) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(fieldErrs), fieldErrs)
	}

	details := fieldErrs.Details()
	if got := details["Name"]; got != "Name is required" {
		t.Errorf("Name message = %v", got)
	}
	if got := details["Email"]; got != "Email must be a valid email address" {
		t.Errorf("Email message = %v", got)
	}
	if msg, ok := details["Kind"].(string); !ok || !strings.Contains(msg, "one of") {
		t.Errorf("Kind message = %v", details["Kind"])
	}
}
