package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message.
// This lets wrapped copies created by WithCause match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying an underlying cause
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNoScope       = "NO_SCOPE"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyPrompt          = NewDomainError(ErrCodeValidation, "prompt cannot be empty")
	ErrInvalidRiskLevel     = NewDomainError(ErrCodeValidation, "invalid risk level")
	ErrInvalidPriority      = NewDomainError(ErrCodeValidation, "invalid priority")
	ErrInvalidProgress      = NewDomainError(ErrCodeValidation, "progress must be between 0 and 100")
)

// Not found errors
var (
	ErrWorkItemNotFound  = NewDomainError(ErrCodeNotFound, "work item not found")
	ErrWorkspaceNotFound = NewDomainError(ErrCodeNotFound, "workspace not found")
	ErrTenantNotFound    = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrUserNotFound      = NewDomainError(ErrCodeNotFound, "user not found")
	ErrPageNotFound      = NewDomainError(ErrCodeNotFound, "documentation page not found")
)

// Scope errors
var (
	ErrNoScope         = NewDomainError(ErrCodeNoScope, "request has no identifiable user or tenant")
	ErrOutOfScope      = NewDomainError(ErrCodeForbidden, "entity is outside the caller's scope")
	ErrGatewayDisabled = NewDomainError(ErrCodeUnavailable, "generation gateway not configured")
)
