package persistence

import (
	"context"
	"sort"

	"github.com/erp/tenantdb/internal/domain/tenant"
)

// Registry discovers tenant namespaces among everything the server holds
type Registry struct {
	store TenantStore
}

// NewRegistry creates a registry over store
func NewRegistry(store TenantStore) *Registry {
	return &Registry{store: store}
}

// ListTenants returns the namespaces matching the tenant naming pattern, sorted.
// Enumeration failures are ConnectivityErrors.
func (r *Registry) ListTenants(ctx context.Context) ([]string, error) {
	names, err := r.store.ListNamespaces(ctx)
	if err != nil {
		return nil, &tenant.ConnectivityError{Err: err}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if tenant.IsSchemaName(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}
