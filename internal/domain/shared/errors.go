// Package shared holds the error vocabulary common to the domain packages.
package shared

// Domain error codes; the HTTP layer maps each to an ERR_ code and status
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
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

// Is matches any DomainError with the same code, so errors.Is(err, ErrNotFound)
// holds for every not-found error whatever its message
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinels for errors.Is
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConflict     = NewDomainError(CodeConflict, "Resource is locked by another operation")
)
