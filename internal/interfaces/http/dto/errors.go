package dto

import "net/http"

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidInput is used for invalid names, years and policies
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeNotFound is used when a tenant or source exercise does not exist
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used when another run holds the tenant lock
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeCatalog is used when the migration directory cannot be read
	ErrCodeCatalog = "ERR_CATALOG"
	// ErrCodeUnavailable is used when the database cannot be reached
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeCatalog:      http.StatusInternalServerError,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"CONFLICT":       ErrCodeConflict,
	"INTERNAL_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
