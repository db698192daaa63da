// Package domain defines the core domain models for BloomBuddy.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes have the form BB-<AREA>-<NNNN>. The numeric part mirrors the HTTP
// status family the error maps to (4010 -> 401, 4040 -> 404, 5000 -> 500).
type DomainError struct {
	Code    string // Error code (e.g., "BB-SENS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthorized indicates a missing or rejected credential.
	ErrUnauthorized = NewDomainError("BB-AUTH-4010", "unauthorized")

	// ErrTokenExpired indicates the token expiration is not after now.
	ErrTokenExpired = NewDomainError("BB-AUTH-4011", "token expired")

	// ErrTokenInvalidSignature indicates the token signature does not verify.
	ErrTokenInvalidSignature = NewDomainError("BB-AUTH-4012", "invalid token signature")

	// ErrTokenMalformed indicates the token could not be decoded.
	ErrTokenMalformed = NewDomainError("BB-AUTH-4013", "malformed token")

	// ErrWrongSubjectKind indicates a token was issued for another credential type.
	ErrWrongSubjectKind = NewDomainError("BB-AUTH-4014", "token not valid for this operation")
)

// ============================================================================
// Account Errors (ACCT)
// ============================================================================

var (
	// ErrAccountValidation indicates account fields failed validation.
	ErrAccountValidation = NewDomainError("BB-ACCT-4001", "account validation failed")

	// ErrAccountNameTaken indicates another account already uses the name.
	ErrAccountNameTaken = NewDomainError("BB-ACCT-4003", "account name already exists")

	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = NewDomainError("BB-ACCT-4040", "account not found")
)

// ============================================================================
// Sensor Errors (SENS)
// ============================================================================

var (
	// ErrSensorValidation indicates sensor fields failed validation.
	ErrSensorValidation = NewDomainError("BB-SENS-4001", "sensor validation failed")

	// ErrQuotaExceeded indicates the account already owns the maximum number of sensors.
	ErrQuotaExceeded = NewDomainError("BB-SENS-4002", "sensor quota exceeded")

	// ErrDuplicateName indicates another sensor of the account carries the name.
	ErrDuplicateName = NewDomainError("BB-SENS-4003", "sensor name already in use")

	// ErrNotLinked indicates the sensor is not in the account's owned list.
	ErrNotLinked = NewDomainError("BB-SENS-4005", "no sensor with the given id is linked to this account")

	// ErrSensorNotFound indicates no sensor matches the owner and id.
	ErrSensorNotFound = NewDomainError("BB-SENS-4040", "sensor not found")

	// ErrNoReading indicates the sensor has not reported any telemetry yet.
	ErrNoReading = NewDomainError("BB-SENS-2040", "no data available yet")
)

// ============================================================================
// Device Errors (DEV)
// ============================================================================

var (
	// ErrInvalidDeviceToken indicates the push token is not 64 hex characters.
	ErrInvalidDeviceToken = NewDomainError("BB-DEV-4001", "invalid device token format")

	// ErrDuplicateDevice indicates the account already registered the token.
	ErrDuplicateDevice = NewDomainError("BB-DEV-4003", "device already registered")

	// ErrDeviceNotFound indicates the device does not exist for the account.
	ErrDeviceNotFound = NewDomainError("BB-DEV-4040", "device not found")
)

// ============================================================================
// Telemetry Errors (TELE)
// ============================================================================

var (
	// ErrMalformedPayload indicates no numeric reading could be parsed.
	ErrMalformedPayload = NewDomainError("BB-TELE-4001", "invalid value: not a decimal number")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("BB-SYS-5000", "internal server error")

	// ErrInternalInvariant indicates a guaranteed invariant was violated.
	ErrInternalInvariant = NewDomainError("BB-SYS-5001", "internal invariant violated")

	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError("BB-SYS-5002", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("BB-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("BB-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("BB-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("BB-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("BB-ARG-1002", "missing required argument")
)
