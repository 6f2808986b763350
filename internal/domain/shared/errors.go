package shared

import "errors"

// Error codes used across the ledger. The HTTP layer maps these to status
// codes; callers can branch on them via IsCode.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeStateConflict      = "STATE_CONFLICT"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeConcurrency        = "CONCURRENCY_CONFLICT"
	CodeRetryable          = "RETRYABLE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed or out-of-range input
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError reports an unknown entity reference
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewInsufficientStockError reports available quantity below the request
func NewInsufficientStockError(message string) *DomainError {
	return NewDomainError(CodeInsufficientStock, message)
}

// NewStateConflictError reports an operation attempted from an invalid state
func NewStateConflictError(message string) *DomainError {
	return NewDomainError(CodeStateConflict, message)
}

// NewInvariantViolationError reports balance/layer totals disagreeing.
// Fatal: logged and surfaced, never auto-repaired.
func NewInvariantViolationError(message string) *DomainError {
	return NewDomainError(CodeInvariantViolation, message)
}

// NewRetryableError reports a transient failure (lock-contention timeout)
// that the caller may retry; de-duplication across retries relies on the
// (referenceType, referenceId) idempotency key.
func NewRetryableError(message string) *DomainError {
	return NewDomainError(CodeRetryable, message)
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidState        = NewDomainError(CodeStateConflict, "Operation not allowed in current state")
)

// ErrorCode extracts the domain error code, or empty string for non-domain errors
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsCode reports whether err is a DomainError carrying the given code
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// IsRetryable reports whether the caller may safely retry the operation
func IsRetryable(err error) bool {
	return IsCode(err, CodeRetryable)
}
