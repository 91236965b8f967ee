package schema

import (
	"context"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// TenantStatus is the migration state of one tenant
type TenantStatus struct {
	Database        string                   `json:"database"`
	Total           int                      `json:"total"`
	Applied         int                      `json:"applied"`
	Pending         int                      `json:"pending"`
	PendingVersions []string                 `json:"pending_migrations"`
	AppliedRecords  []tenant.MigrationRecord `json:"applied_migrations,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

// TenantPlan lists what a run would apply to one tenant
type TenantPlan struct {
	Database string             `json:"database"`
	Pending  []tenant.Migration `json:"pending"`
	Error    string             `json:"error,omitempty"`
}

// Status reports applied and pending migrations per tenant. It never writes:
// a tenant without a tracking table simply has nothing applied.
func (r *Runner) Status(ctx context.Context, target string) ([]TenantStatus, error) {
	migrations, inspected, err := r.inspectAll(ctx, target)
	if err != nil {
		return nil, err
	}

	out := make([]TenantStatus, len(inspected))
	for i, in := range inspected {
		st := TenantStatus{Database: in.schema, Total: len(migrations), PendingVersions: []string{}}
		if in.err != nil {
			st.Error = in.err.Error()
			out[i] = st
			continue
		}
		st.AppliedRecords = in.records
		for _, m := range in.pending {
			st.PendingVersions = append(st.PendingVersions, m.Version)
		}
		st.Pending = len(in.pending)
		st.Applied = st.Total - st.Pending
		out[i] = st
	}
	return out, nil
}

// Plan is the dry run of ApplyAll: the pending migrations per tenant, read only
func (r *Runner) Plan(ctx context.Context, target string) ([]TenantPlan, error) {
	_, inspected, err := r.inspectAll(ctx, target)
	if err != nil {
		return nil, err
	}

	out := make([]TenantPlan, len(inspected))
	for i, in := range inspected {
		out[i] = TenantPlan{Database: in.schema, Pending: in.pending}
		if in.err != nil {
			out[i].Error = in.err.Error()
		}
	}
	return out, nil
}

type inspection struct {
	schema  string
	records []tenant.MigrationRecord
	pending []tenant.Migration
	err     error
}

func (r *Runner) inspectAll(ctx context.Context, target string) ([]tenant.Migration, []inspection, error) {
	migrations, err := r.catalog.LoadMigrations()
	if err != nil {
		return nil, nil, err
	}
	schemas, err := r.resolveTargets(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	out := make([]inspection, len(schemas))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, schema := range schemas {
		g.Go(func() error {
			out[i] = r.inspect(ctx, schema, migrations)
			return nil
		})
	}
	_ = g.Wait()
	return migrations, out, nil
}

func (r *Runner) inspect(ctx context.Context, schema string, migrations []tenant.Migration) inspection {
	in := inspection{schema: schema, pending: []tenant.Migration{}}
	err := r.store.InTenant(ctx, schema, func(tx *gorm.DB) error {
		if !r.tracker.HasTable(tx) {
			return nil
		}
		var err error
		in.records, err = r.tracker.Applied(tx)
		return err
	})
	if err != nil {
		in.err = &tenant.ConnectivityError{Schema: schema, Err: err}
		r.logger.Warn("Tenant status unavailable", zap.String("schema", schema), zap.Error(err))
		return in
	}

	applied := make(map[string]bool, len(in.records))
	for _, rec := range in.records {
		applied[rec.Version] = true
	}
	for _, m := range migrations {
		if !applied[m.Version] {
			in.pending = append(in.pending, m)
		}
	}
	return in
}
