package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error kind codes reported to callers.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeKeyResolution      = "KEY_RESOLUTION_FAILED"
	CodeSigning            = "SIGNING_FAILED"
	CodePersistence        = "PERSISTENCE_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient I/O worth retrying by the caller.
func (e *DomainError) Retryable() bool {
	return e.Code == CodePersistence || e.Code == CodeKeyResolution
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewInvalidCredentials is returned for both unknown emails and password mismatches.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "email and password don't match", http.StatusBadRequest, nil)
}

func NewMissingToken() error {
	return NewDomainError(CodeMissingToken, "authentication token missing", http.StatusUnauthorized, nil)
}

// NewInvalidToken hides the failed check from the caller; err is kept for logs only.
func NewInvalidToken(err error) error {
	return &DomainError{
		Code:       CodeInvalidToken,
		Message:    "invalid token",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewKeyResolution(err error) error {
	return &DomainError{
		Code:       CodeKeyResolution,
		Message:    "unable to resolve verification key",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewSigning(err error) error {
	return &DomainError{
		Code:       CodeSigning,
		Message:    "unable to sign token",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewPersistence(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "failed to store the data in the database",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsRetryable reports whether err is a transient persistence or key resolution fault.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Retryable()
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}
