package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeValidation, "test error", 400)
	expected := "VALIDATION_ERROR: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}

	// Check error message includes cause
	errorMsg := err.Error()
	if !contains(errorMsg, "original error") {
		t.Errorf("Error() should contain cause, got: %v", errorMsg)
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeValidation, "test error", 400)
	err.WithContext("field", "udp_port").WithContext("value", 1023)

	if err.Context["field"] != "udp_port" {
		t.Errorf("Context[field] = %v, want 'udp_port'", err.Context["field"])
	}
	if err.Context["value"] != 1023 {
		t.Errorf("Context[value] = %v, want 1023", err.Context["value"])
	}
}

func TestNewSubmissionError(t *testing.T) {
	err := NewSubmissionError("backend rejected config")
	if err.Code != ErrCodeSubmissionRejected {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeSubmissionRejected)
	}
	if err.HTTPStatus != 502 {
		t.Errorf("HTTPStatus = %v, want 502", err.HTTPStatus)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("session")
	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
	}
	if err.HTTPStatus != 404 {
		t.Errorf("HTTPStatus = %v, want 404", err.HTTPStatus)
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeSignaling, "test", 502)
	regularErr := errors.New("regular error")

	if !IsAppError(appErr) {
		t.Error("IsAppError() should return true for AppError")
	}
	if IsAppError(regularErr) {
		t.Error("IsAppError() should return false for regular error")
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeTransport, "test", 502)

	// Direct AppError
	result := GetAppError(appErr)
	if result != appErr {
		t.Errorf("GetAppError() = %v, want %v", result, appErr)
	}

	// Wrapped AppError
	wrapped := fmt.Errorf("outer: %w", appErr)
	result = GetAppError(wrapped)
	if result != appErr {
		t.Errorf("GetAppError() on wrapped = %v, want %v", result, appErr)
	}

	// Regular error
	if GetAppError(errors.New("plain")) != nil {
		t.Error("GetAppError() should return nil for regular error")
	}

	// Nil
	if GetAppError(nil) != nil {
		t.Error("GetAppError(nil) should return nil")
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
