package tenant

import (
	"fmt"
	"time"

	"github.com/erp/tenantdb/internal/domain/shared"
)

// Skip reasons carried by MigrationResult.SkippedReason
const (
	SkipAlreadyApplied = "already-applied"
	SkipAborted        = "aborted"
)

// Migration is one versioned SQL file from the catalog
type Migration struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	SQL         string `json:"-"`
}

// MigrationRecord is a row of the tenant-local tracking table
type MigrationRecord struct {
	Version     string    `json:"version" gorm:"column:version"`
	Description string    `json:"description" gorm:"column:description"`
	AppliedAt   time.Time `json:"applied_at" gorm:"column:applied_at"`
	DurationMs  int64     `json:"duration_ms" gorm:"column:duration_ms"`
}

// MigrationResult is the outcome of one migration on one tenant during a run
type MigrationResult struct {
	Schema        string `json:"database"`
	Version       string `json:"version"`
	Description   string `json:"description"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// Applied reports whether the migration ran and committed in this run
func (r MigrationResult) Applied() bool {
	return r.Success && r.SkippedReason == ""
}

// Failed reports whether the migration was attempted and failed
func (r MigrationResult) Failed() bool {
	return !r.Success && r.SkippedReason == ""
}

// ErrorPolicy selects what a sequence does after one step fails
type ErrorPolicy string

const (
	// FailFast stops the sequence of the affected tenant at the first failure
	FailFast ErrorPolicy = "fail-fast"
	// ContinueOnError keeps attempting the remaining steps
	ContinueOnError ErrorPolicy = "continue-on-error"
)

// ParseErrorPolicy parses a policy name; an empty string yields def
func ParseErrorPolicy(s string, def ErrorPolicy) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "":
		return def, nil
	case FailFast, ContinueOnError:
		return ErrorPolicy(s), nil
	default:
		return "", shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("unknown error policy %q (want %s or %s)", s, FailFast, ContinueOnError))
	}
}
