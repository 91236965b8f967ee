package tenant

import (
	"errors"
	"fmt"
)

// ErrTenantLocked is returned when another run holds the tenant lock
var ErrTenantLocked = errors.New("tenant is locked by another run")

// CatalogError means the migration source could not be read. It aborts a run
// before any tenant is touched.
type CatalogError struct {
	Path string
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("migration catalog %s: %v", e.Path, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// ConnectivityError means a tenant namespace (or the server) could not be reached
type ConnectivityError struct {
	Schema string
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("database unreachable: %v", e.Err)
	}
	return fmt.Sprintf("tenant %s unreachable: %v", e.Schema, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// MigrationExecutionError wraps a failed migration body
type MigrationExecutionError struct {
	Schema  string
	Version string
	Err     error
}

func (e *MigrationExecutionError) Error() string {
	return fmt.Sprintf("migration %s on %s: %v", e.Version, e.Schema, e.Err)
}

func (e *MigrationExecutionError) Unwrap() error { return e.Err }

// SourceNotFoundError is returned by a rollover whose source tenant is missing or unreadable
type SourceNotFoundError struct {
	Schema string
	Err    error
}

func (e *SourceNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source exercise %s does not exist", e.Schema)
	}
	return fmt.Sprintf("source exercise %s is not readable: %v", e.Schema, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// ProvisionStepError is one failed table creation or copy. It is captured in
// reports, never returned past the provisioner or rollover.
type ProvisionStepError struct {
	Schema string
	Step   string
	Err    error
}

func (e *ProvisionStepError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Step, e.Schema, e.Err)
}

func (e *ProvisionStepError) Unwrap() error { return e.Err }
