package dto

import (
	"net/http"

	"github.com/commercehub/backend/internal/domain/shared"
)

// Transport-level error codes for failures that never reach the domain
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:        http.StatusBadRequest,
	shared.CodeNotFound:          http.StatusNotFound,
	shared.CodeAlreadyExists:     http.StatusConflict,
	shared.CodeStateConflict:     http.StatusConflict,
	shared.CodeConcurrency:       http.StatusConflict,
	shared.CodeInsufficientStock: http.StatusUnprocessableEntity,

	// Invariant breaks are server-side faults, not caller mistakes
	shared.CodeInvariantViolation: http.StatusInternalServerError,

	// Retryable means "try again shortly"
	shared.CodeRetryable: http.StatusServiceUnavailable,

	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeInternal:   http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
