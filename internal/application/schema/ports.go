// Package schema orchestrates tenant provisioning, migration runs and
// fiscal-year rollovers over a persistence.TenantStore.
package schema

import (
	"context"

	"github.com/erp/tenantdb/internal/domain/tenant"
)

// MigrationSource yields the ordered migration catalog
type MigrationSource interface {
	LoadMigrations() ([]tenant.Migration, error)
}

// TenantLister enumerates tenant namespaces
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// TenantLocker grants exclusive access to one tenant for the length of a run
type TenantLocker interface {
	Acquire(ctx context.Context, schema string) (release func(), err error)
}

// ReportArchive stores finished reports; the returned key locates the object
type ReportArchive interface {
	ArchiveRun(ctx context.Context, report *tenant.RunReport) (string, error)
	ArchiveRollover(ctx context.Context, report *tenant.RolloverReport) (string, error)
}
