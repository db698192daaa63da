package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("BB-TEST-1000", "test message"),
			expected: "[BB-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("BB-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[BB-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("BB-TEST-1000", "message 1")
	err2 := NewDomainError("BB-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("BB-TEST-1001", "message 1") // Different code

	// Same code should match
	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}

	// Different code should not match
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}

	// Should not match non-DomainError
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("BB-TEST-1000", "wrapper").WithCause(cause)

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Without cause
	errNoCause := NewDomainError("BB-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("BB-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	// Check original is unchanged
	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}

	// Check new error has details
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}

	// Check code and message are preserved
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
	if withDetails.Message != original.Message {
		t.Errorf("Message = %q, want %q", withDetails.Message, original.Message)
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("BB-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	// Check original is unchanged
	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}

	// Check new error has cause
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}

	// Check code and message are preserved
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestDomainError_Wrap(t *testing.T) {
	original := NewDomainError("BB-TEST-1000", "original")
	cause := fmt.Errorf("cause")
	wrapped := original.Wrap(cause)

	if wrapped.Cause != cause {
		t.Errorf("Wrap() should set cause, got %v", wrapped.Cause)
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrSensorNotFound

	if !IsDomainError(err, "BB-SENS-4040") {
		t.Error("IsDomainError should return true for matching code")
	}

	if IsDomainError(err, "BB-SENS-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}

	if IsDomainError(fmt.Errorf("regular error"), "BB-SENS-4040") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	// Test with wrapped error
	wrapped := fmt.Errorf("wrapped: %w", ErrSensorNotFound)
	if !IsDomainError(wrapped, "BB-SENS-4040") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "domain error",
			err:      ErrSensorNotFound,
			expected: "BB-SENS-4040",
		},
		{
			name:     "wrapped domain error",
			err:      fmt.Errorf("wrapped: %w", ErrTokenMalformed),
			expected: "BB-AUTH-4013",
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("regular error"),
			expected: "",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	// Verify all predefined errors have correct codes
	tests := []struct {
		err  *DomainError
		code string
	}{
		// Auth errors
		{ErrUnauthorized, "BB-AUTH-4010"},
		{ErrTokenExpired, "BB-AUTH-4011"},
		{ErrTokenInvalidSignature, "BB-AUTH-4012"},
		{ErrTokenMalformed, "BB-AUTH-4013"},
		{ErrWrongSubjectKind, "BB-AUTH-4014"},

		// Account errors
		{ErrAccountValidation, "BB-ACCT-4001"},
		{ErrAccountNameTaken, "BB-ACCT-4003"},
		{ErrAccountNotFound, "BB-ACCT-4040"},

		// Sensor errors
		{ErrSensorValidation, "BB-SENS-4001"},
		{ErrQuotaExceeded, "BB-SENS-4002"},
		{ErrDuplicateName, "BB-SENS-4003"},
		{ErrNotLinked, "BB-SENS-4005"},
		{ErrSensorNotFound, "BB-SENS-4040"},
		{ErrNoReading, "BB-SENS-2040"},

		// Device errors
		{ErrInvalidDeviceToken, "BB-DEV-4001"},
		{ErrDuplicateDevice, "BB-DEV-4003"},
		{ErrDeviceNotFound, "BB-DEV-4040"},

		// Telemetry errors
		{ErrMalformedPayload, "BB-TELE-4001"},

		// System errors
		{ErrInternalServer, "BB-SYS-5000"},
		{ErrInternalInvariant, "BB-SYS-5001"},
		{ErrStorage, "BB-SYS-5002"},
		{ErrServiceUnavailable, "BB-SYS-5030"},
		{ErrBadRequest, "BB-SYS-4000"},
		{ErrRateLimited, "BB-SYS-4290"},

		// Argument errors
		{ErrInvalidArgument, "BB-ARG-1001"},
		{ErrMissingArgument, "BB-ARG-1002"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}

func TestErrorChaining(t *testing.T) {
	// Test chaining WithDetails and WithCause
	cause := fmt.Errorf("root cause")
	err := ErrSensorNotFound.
		WithDetails("sensor_id: 0b7e").
		WithCause(cause)

	// Verify all properties are preserved
	if err.Code != "BB-SENS-4040" {
		t.Errorf("Code = %q, want %q", err.Code, "BB-SENS-4040")
	}
	if err.Details != "sensor_id: 0b7e" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Cause != cause {
		t.Error("Cause should be preserved")
	}

	// Verify errors.Is still works
	if !errors.Is(err, ErrSensorNotFound) {
		t.Error("errors.Is should work after chaining")
	}
}
