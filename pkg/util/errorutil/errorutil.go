package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Stable error codes surfaced to callers.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeScopeDenied        = "SCOPE_DENIED"
	CodeEvidenceMissing    = "EVIDENCE_MISSING"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeConsentRequired    = "CONSENT_REQUIRED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnauthorized       = "UNAUTHORIZED"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewIllegalTransition(status, action string) error {
	return NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("action %s not allowed from status %s", action, status),
		http.StatusConflict,
		map[string]any{"status": status, "action": action})
}

// NewScopeDenied keeps the outward message generic so ticket existence does not
// leak across ward boundaries; the reason is kept on the wrapped error for logs.
func NewScopeDenied(reason string) error {
	return &DomainError{
		Code:       CodeScopeDenied,
		Message:    "ticket not accessible",
		HTTPStatus: http.StatusForbidden,
		Err:        errors.New(reason),
	}
}

func NewEvidenceMissing(missing []string) error {
	return NewDomainError(CodeEvidenceMissing, "before and after evidence required",
		http.StatusUnprocessableEntity, map[string]any{"missing": missing})
}

func NewVerificationFailed(message string) error {
	return NewDomainError(CodeVerificationFailed, message, http.StatusUnprocessableEntity, nil)
}

func NewConsentRequired() error {
	return NewDomainError(CodeConsentRequired, "consent is required to process a complaint", http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
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
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
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
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{
			Code:       CodeNotFound,
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < http.StatusInternalServerError {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeScopeDenied
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	return CodeValidation
}

// MapError normalizes err into a DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
