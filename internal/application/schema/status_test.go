package schema

import (
	"context"
	"testing"

	"github.com/erp/tenantdb/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRunner_StatusIsReadOnly(t *testing.T) {
	store := newStore(t, "2025_bu01", "2025_bu02")
	runner := newTestRunner(t, store, catalogOf(itemsCatalog), nil, nil)
	ctx := context.Background()

	statuses, err := runner.Status(ctx, "")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, 2, st.Total)
		assert.Equal(t, 0, st.Applied)
		assert.Equal(t, 2, st.Pending)
		assert.Equal(t, []string{"001", "002"}, st.PendingVersions)
		assert.Empty(t, st.Error)
	}

	tracker := migration.NewTracker(store.Dialect())
	require.NoError(t, store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
		assert.False(t, tracker.HasTable(tx), "status must not create the tracking table")
		return nil
	}))

	_, err = runner.ApplyAll(ctx, ApplyOptions{Target: "2025_bu01"})
	require.NoError(t, err)

	statuses, err = runner.Status(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025_bu01", statuses[0].Database)
	assert.Equal(t, 2, statuses[0].Applied)
	assert.Empty(t, statuses[0].PendingVersions)
	require.Len(t, statuses[0].AppliedRecords, 2)
	assert.Equal(t, "seed items", statuses[0].AppliedRecords[1].Description)
	assert.Equal(t, 2, statuses[1].Pending)
}

func TestRunner_Plan(t *testing.T) {
	store := newStore(t, "2025_bu01")
	execIn(t, store, "2025_bu01",
		"CREATE TABLE _migrations (id INTEGER PRIMARY KEY AUTOINCREMENT, version VARCHAR(255) NOT NULL UNIQUE, description VARCHAR(255), applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, duration_ms BIGINT DEFAULT 0)",
		"INSERT INTO _migrations (version, description) VALUES ('001', 'create items')")
	runner := newTestRunner(t, store, catalogOf(itemsCatalog), nil, nil)

	plans, err := runner.Plan(context.Background(), "2025_bu01")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Len(t, plans[0].Pending, 1)
	assert.Equal(t, "002", plans[0].Pending[0].Version)
	assert.Equal(t, "002_seed_items.sql", plans[0].Pending[0].Filename)

	assert.Equal(t, []string{"001"}, appliedVersions(t, store, "2025_bu01"))
}
