package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.MkdirAll(migrations, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_add_barcode.sql"),
		[]byte("ALTER TABLE article ADD COLUMN code_barre VARCHAR(50);"), 0644))

	return &config.Config{
		App:      config.AppConfig{Name: "tenantdb", Env: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, SQLiteDir: filepath.Join(dir, "data")},
		Log:      config.LogConfig{Level: "error"},
		Migration: config.MigrationConfig{
			Path:        migrations,
			Concurrency: 2,
			Policy:      "fail-fast",
		},
	}
}

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	assert.False(t, app.TracingEnabled())
	require.NoError(t, app.Store.Ping(ctx))

	prov, err := app.Provisioner.Provision(ctx, "2025_bu01", "")
	require.NoError(t, err)
	assert.Zero(t, prov.FailedSteps())

	tenants, err := app.Registry.ListTenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025_bu01"}, tenants)

	report, err := app.Runner.ApplyAll(ctx, schema.ApplyOptions{})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, 1, report.Summary().Success)

	statuses, err := app.Runner.Status(ctx, "")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 0, statuses[0].Pending)
}

func TestNew_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mustPort(t, mr)}

	ctx := context.Background()
	app, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	_, err = app.Provisioner.Provision(ctx, "2025_bu01", "")
	require.NoError(t, err)
	report, err := app.Runner.ApplyAll(ctx, schema.ApplyOptions{Target: "2025_bu01"})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Empty(t, mr.Keys(), "locks are released after the run")
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
		_, err := New(ctx, cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("unknown policy", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Migration.Policy = "retry"
		_, err := New(ctx, cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("storage without bucket", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Storage = config.StorageConfig{Enabled: true, Region: "us-east-1"}
		_, err := New(ctx, cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}
