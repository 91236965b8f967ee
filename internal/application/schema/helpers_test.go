package schema

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/cache"
	"github.com/erp/tenantdb/internal/infrastructure/migration"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newStore(t *testing.T, schemas ...string) *persistence.FileStore {
	t.Helper()
	store, err := persistence.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, s := range schemas {
		require.NoError(t, store.CreateNamespace(context.Background(), s))
	}
	return store
}

func catalogOf(files map[string]string) *migration.Catalog {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return migration.NewCatalogFS("test", fsys)
}

func newTestRunner(t *testing.T, store persistence.TenantStore, catalog MigrationSource, locker TenantLocker, archive ReportArchive) *Runner {
	t.Helper()
	if locker == nil {
		locker = cache.NewInMemoryTenantLock()
	}
	return NewRunner(store, persistence.NewRegistry(store), catalog, locker, archive, nil,
		RunnerConfig{Concurrency: 2}, zaptest.NewLogger(t))
}

func execIn(t *testing.T, store persistence.TenantStore, schema string, stmts ...string) {
	t.Helper()
	require.NoError(t, store.InTenant(context.Background(), schema, func(tx *gorm.DB) error {
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func countIn(t *testing.T, store persistence.TenantStore, schema, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, store.InTenant(context.Background(), schema, func(tx *gorm.DB) error {
		var err error
		n, err = persistence.CountRows(tx, store.Dialect(), table)
		return err
	}))
	return n
}

func appliedVersions(t *testing.T, store persistence.TenantStore, schema string) []string {
	t.Helper()
	tracker := migration.NewTracker(store.Dialect())
	var versions []string
	require.NoError(t, store.InTenant(context.Background(), schema, func(tx *gorm.DB) error {
		if !tracker.HasTable(tx) {
			return nil
		}
		records, err := tracker.Applied(tx)
		for _, r := range records {
			versions = append(versions, r.Version)
		}
		return err
	}))
	return versions
}

// fakeArchive records what it is given
type fakeArchive struct {
	mu        sync.Mutex
	runs      []*tenant.RunReport
	rollovers []*tenant.RolloverReport
}

func (a *fakeArchive) ArchiveRun(ctx context.Context, r *tenant.RunReport) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, r)
	return "runs/" + r.RunID + ".json", nil
}

func (a *fakeArchive) ArchiveRollover(ctx context.Context, r *tenant.RolloverReport) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollovers = append(a.rollovers, r)
	return "rollovers/" + r.Target + ".json", nil
}

// flakyStore fails the n-th InTenant call
type flakyStore struct {
	persistence.TenantStore
	mu       sync.Mutex
	calls    int
	failCall int
	err      error
}

func (s *flakyStore) InTenant(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failCall
	s.mu.Unlock()
	if fail {
		return s.err
	}
	return s.TenantStore.InTenant(ctx, schema, fn)
}
