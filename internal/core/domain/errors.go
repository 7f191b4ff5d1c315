package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SG-AUTH-4012")
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

// Authentication errors (AUTH). The 401 family carries enough structure
// for the HTTP layer to decide whether cookie-clearing headers are due.
var (
	// ErrNoCookie indicates the request carried no session cookies at all.
	ErrNoCookie = NewDomainError("SG-AUTH-4010", "no session cookie")

	// ErrCookieParse indicates the cookies were present but unreadable.
	ErrCookieParse = NewDomainError("SG-AUTH-4011", "malformed session cookie")

	// ErrBadSignature indicates the session token failed verification.
	ErrBadSignature = NewDomainError("SG-AUTH-4012", "invalid session token")

	// ErrSessionExpired indicates the session is gone or past the refresh window.
	ErrSessionExpired = NewDomainError("SG-AUTH-4013", "session expired")

	// ErrSessionRefreshed signals that the presented session was rotated;
	// fresh cookies accompany the response and the client should retry.
	ErrSessionRefreshed = NewDomainError("SG-AUTH-1100", "session refreshed")

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = NewDomainError("SG-AUTH-4014", "invalid credentials")

	// ErrOTPInvalid indicates a wrong or consumed one-time code.
	ErrOTPInvalid = NewDomainError("SG-AUTH-4015", "invalid one-time code")

	// ErrOTPRateLimited indicates too many one-time code requests.
	ErrOTPRateLimited = NewDomainError("SG-AUTH-4290", "too many code requests")
)

// Session errors (SESS).
var (
	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("SG-SESS-4040", "session not found")

	// ErrSessionValidation indicates session data validation failed.
	ErrSessionValidation = NewDomainError("SG-SESS-4001", "session validation failed")
)

// User errors (USER).
var (
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = NewDomainError("SG-USER-4040", "user not found")

	// ErrUserConflict indicates the username or email is already in use.
	ErrUserConflict = NewDomainError("SG-USER-4090", "username or email already in use")

	// ErrUserValidation indicates a failed field validation.
	ErrUserValidation = NewDomainError("SG-USER-4001", "user validation failed")
)

// Object errors (OBJ).
var (
	// ErrObjectNotFound indicates a stored blob does not exist.
	ErrObjectNotFound = NewDomainError("SG-OBJ-4040", "object not found")
)

// System errors (SYS).
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SG-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("SG-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SG-SYS-4000", "bad request")
)

// Argument errors (ARG).
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SG-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SG-ARG-1002", "missing required argument")
)
