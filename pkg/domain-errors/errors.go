// Package domainerrors defines code-carrying errors for the cohort domain.
//
// Services return these so transport layers can translate them into HTTP
// statuses without string matching. Infrastructure layers return
// pkg/platform/sentinel errors instead; services wrap those into domain
// errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput marks malformed or missing caller input.
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation marks a model-level invariant breach
	// (e.g. a participant with neither email nor phone).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks a reference to a program, participant, or
	// department that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness violation (slug, contact identity)
	// surfaced after the storage constraint was hit and retries exhausted.
	CodeConflict Code = "conflict"
	// CodeRegistrationClosed marks a registration attempt against a program
	// that is not accepting registrations, whether closed manually or past
	// its deadline.
	CodeRegistrationClosed Code = "registration_closed"
	// CodeAlreadyRegistered marks a duplicate self-service registration.
	CodeAlreadyRegistered Code = "already_registered"
	// CodeUnauthorized marks a missing or unverifiable caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal_error"
)

// DomainError pairs a classification code with a caller-facing message and an
// optional wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. Wrapping nil
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when err is not a domain error.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its transport status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict, CodeAlreadyRegistered:
		return http.StatusConflict
	case CodeRegistrationClosed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
