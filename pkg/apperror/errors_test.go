// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeValidation, "address too short"),
			expected: "[VALIDATION] address too short",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeNotFound, "order not found", "order_number"),
			expected: "[NOT_FOUND] order not found (field: order_number)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected int
	}{
		{"not found", CodeNotFound, http.StatusNotFound},
		{"conflict", CodeConflict, http.StatusConflict},
		{"invalid transition", CodeInvalidTransition, http.StatusUnprocessableEntity},
		{"validation", CodeValidation, http.StatusBadRequest},
		{"provider failure", CodeProviderFailure, http.StatusBadGateway},
		{"internal", CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "message")
			if got := err.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	err := New(CodeValidation, "test message")

	if err.Code != CodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, CodeValidation)
	}
	if err.Message != "test message" {
		t.Errorf("Message = %v, want %v", err.Message, "test message")
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
	if err.Details == nil {
		t.Error("Details should be initialized")
	}
}

func TestNewWarning(t *testing.T) {
	err := NewWarning(CodeCacheMiss, "cache miss")
	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
	if !IsWarning(err) {
		t.Error("IsWarning() should be true")
	}
}

func TestNewCritical(t *testing.T) {
	err := NewCritical(CodeInternal, "critical failure")
	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
	if !IsCritical(err) {
		t.Error("IsCritical() should be true")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("db connection refused")
	err := Wrap(cause, CodeInternal, "failed to load order")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad config key").WithDetails("key", "proveedor_matrix")
	if err.Details["key"] != "proveedor_matrix" {
		t.Errorf("Details[key] = %v, want %v", err.Details["key"], "proveedor_matrix")
	}
}

func TestWithField(t *testing.T) {
	err := New(CodeValidation, "bad role").WithField("role")
	if err.Field != "role" {
		t.Errorf("Field = %v, want %v", err.Field, "role")
	}
}

func TestWithSeverity(t *testing.T) {
	err := New(CodeValidation, "x").WithSeverity(SeverityWarning)
	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
}

func TestIs(t *testing.T) {
	err := New(CodeNotFound, "order not found")
	if !Is(err, CodeNotFound) {
		t.Error("Is() should match CodeNotFound")
	}
	if Is(err, CodeConflict) {
		t.Error("Is() should not match CodeConflict")
	}
	if Is(errors.New("plain"), CodeNotFound) {
		t.Error("Is() should be false for a plain error")
	}
}

func TestCode(t *testing.T) {
	err := New(CodeConflict, "duplicate order number")
	if got := Code(err); got != CodeConflict {
		t.Errorf("Code() = %v, want %v", got, CodeConflict)
	}
	if got := Code(errors.New("plain")); got != CodeInternal {
		t.Errorf("Code() for a plain error = %v, want %v", got, CodeInternal)
	}
}

func TestToHTTP(t *testing.T) {
	status, msg := ToHTTP(New(CodeNotFound, "order not found"))
	if status != http.StatusNotFound {
		t.Errorf("status = %v, want %v", status, http.StatusNotFound)
	}
	if msg != "order not found" {
		t.Errorf("msg = %v, want %v", msg, "order not found")
	}

	status, _ = ToHTTP(errors.New("plain"))
	if status != http.StatusInternalServerError {
		t.Errorf("status for plain error = %v, want %v", status, http.StatusInternalServerError)
	}

	status, _ = ToHTTP(nil)
	if status != http.StatusOK {
		t.Errorf("status for nil error = %v, want %v", status, http.StatusOK)
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	v.AddError(CodeValidation, "address too short")
	v.AddWarning(CodeCacheMiss, "geocode cache stale")
	v.AddErrorWithField(CodeValidation, "bad role", "role")

	if !v.HasErrors() {
		t.Error("HasErrors() should be true")
	}
	if !v.HasWarnings() {
		t.Error("HasWarnings() should be true")
	}
	if v.IsValid() {
		t.Error("IsValid() should be false when errors are present")
	}
	if len(v.ErrorMessages()) != 2 {
		t.Errorf("ErrorMessages() length = %v, want 2", len(v.ErrorMessages()))
	}
	if len(v.WarningMessages()) != 1 {
		t.Errorf("WarningMessages() length = %v, want 1", len(v.WarningMessages()))
	}
}

func TestValidationErrors_Merge(t *testing.T) {
	a := NewValidationErrors()
	a.AddError(CodeValidation, "a")

	b := NewValidationErrors()
	b.AddError(CodeConflict, "b")
	b.AddWarning(CodeCacheMiss, "c")

	a.Merge(b)
	if len(a.Errors) != 2 {
		t.Errorf("Errors length = %v, want 2", len(a.Errors))
	}
	if len(a.Warnings) != 1 {
		t.Errorf("Warnings length = %v, want 1", len(a.Warnings))
	}

	// Merge(nil) must be a no-op, not a panic.
	a.Merge(nil)
	if len(a.Errors) != 2 {
		t.Errorf("Errors length after Merge(nil) = %v, want 2", len(a.Errors))
	}
}
