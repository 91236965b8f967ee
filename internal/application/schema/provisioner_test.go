package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/tenantdb/internal/domain/shared"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/cache"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestProvisioner_Provision(t *testing.T) {
	store := newStore(t)
	p := NewProvisioner(store, nil, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	report, err := p.Provision(ctx, "2025_bu01", "")
	require.NoError(t, err)
	assert.Equal(t, "2025_bu01", report.Schema)
	require.Len(t, report.Steps, len(persistence.TenantTables))
	assert.Zero(t, report.FailedSteps())
	assert.Equal(t, "famille_art", report.Steps[0].Table)
	assert.Equal(t, tenant.StepCreateTable, report.Steps[0].Step)

	require.NoError(t, store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
		for _, table := range persistence.TenantTables {
			assert.True(t, tx.Migrator().HasTable(table.Name), table.Name)
		}
		return nil
	}))

	// idempotent
	execIn(t, store, "2025_bu01", "INSERT INTO famille_art (famille) VALUES ('outils')")
	again, err := p.Provision(ctx, "2025_bu01", "")
	require.NoError(t, err)
	assert.Zero(t, again.FailedSteps())
	assert.EqualValues(t, 1, countIn(t, store, "2025_bu01", "famille_art"))
}

func TestProvisioner_InvalidNameTouchesNothing(t *testing.T) {
	store := newStore(t)
	p := NewProvisioner(store, nil, nil, zaptest.NewLogger(t))

	for _, name := range []string{"", "2025_BU01", "2025_bu1", "x; DROP SCHEMA public"} {
		_, err := p.Provision(context.Background(), name, "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr, name)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	}

	names, err := store.ListNamespaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestProvisioner_StepFailure(t *testing.T) {
	// call 5 creates the fifth table (fact)
	failing := func(t *testing.T) *flakyStore {
		return &flakyStore{TenantStore: newStore(t), failCall: 5, err: errors.New("disk I/O error")}
	}

	t.Run("continue-on-error creates the other tables", func(t *testing.T) {
		store := failing(t)
		p := NewProvisioner(store, nil, nil, zaptest.NewLogger(t))

		report, err := p.Provision(context.Background(), "2025_bu01", tenant.ContinueOnError)
		require.NoError(t, err)
		assert.Equal(t, 1, report.FailedSteps())
		assert.Equal(t, "fact", report.Steps[4].Table)
		assert.Equal(t, "disk I/O error", report.Steps[4].Error)
		assert.True(t, report.Steps[5].Success)
	})

	t.Run("fail-fast stops after the failed table", func(t *testing.T) {
		store := failing(t)
		p := NewProvisioner(store, nil, nil, zaptest.NewLogger(t))

		report, err := p.Provision(context.Background(), "2025_bu01", tenant.FailFast)
		require.NoError(t, err)
		assert.Equal(t, 1, report.FailedSteps())
		for _, step := range report.Steps[5:] {
			assert.Equal(t, tenant.SkipAborted, step.SkippedReason)
		}
	})
}

type unreachableStore struct {
	persistence.TenantStore
}

func (unreachableStore) CreateNamespace(context.Context, string) error {
	return errors.New("dial tcp: connection refused")
}

func TestProvisioner_UnreachableNamespace(t *testing.T) {
	p := NewProvisioner(unreachableStore{newStore(t)}, nil, nil, zaptest.NewLogger(t))

	_, err := p.Provision(context.Background(), "2025_bu01", "")
	var connErr *tenant.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "2025_bu01", connErr.Schema)
}

func TestProvisioner_TenantLock(t *testing.T) {
	store := newStore(t)
	locker := cache.NewInMemoryTenantLock()
	p := NewProvisioner(store, locker, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "2025_bu01")
	require.NoError(t, err)

	_, err = p.Provision(ctx, "2025_bu01", "")
	assert.ErrorIs(t, err, tenant.ErrTenantLocked)
	names, err := store.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	release()
	_, err = p.Provision(ctx, "2025_bu01", "")
	require.NoError(t, err)

	// the lock is released once provisioning returns
	again, err := locker.Acquire(ctx, "2025_bu01")
	require.NoError(t, err)
	again()
}
