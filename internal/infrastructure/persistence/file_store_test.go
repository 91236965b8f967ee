package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFileStore_Namespaces(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	ok, err := store.NamespaceExists(ctx, "2025_bu01")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CreateNamespace(ctx, "2025_bu02"))
	require.NoError(t, store.CreateNamespace(ctx, "2025_bu01"))
	require.NoError(t, store.CreateNamespace(ctx, "2025_bu01"))
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(store.dir, "backup.db"), 0o755))

	names, err := store.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025_bu01", "2025_bu02"}, names)

	ok, err = store.NamespaceExists(ctx, "2025_bu01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_InTenant(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	t.Run("missing namespace is not created implicitly", func(t *testing.T) {
		err := store.InTenant(ctx, "2030_bu01", func(tx *gorm.DB) error { return nil })
		assert.ErrorIs(t, err, ErrNamespaceNotFound)

		ok, err := store.NamespaceExists(ctx, "2030_bu01")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failed fn rolls back", func(t *testing.T) {
		require.NoError(t, store.CreateNamespace(ctx, "2025_bu01"))
		require.NoError(t, store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
			return tx.Exec("CREATE TABLE t (id INTEGER)").Error
		}))

		boom := errors.New("boom")
		err := store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
			if err := tx.Exec("INSERT INTO t (id) VALUES (1)").Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var n int64
		require.NoError(t, store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
			var err error
			n, err = CountRows(tx, store.Dialect(), "t")
			return err
		}))
		assert.Zero(t, n)
	})
}

func TestFileStore_CopyTable(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()
	ddl := "CREATE TABLE famille_art (famille VARCHAR(50) PRIMARY KEY)"

	for _, ns := range []string{"2025_bu01", "2026_bu01"} {
		require.NoError(t, store.CreateNamespace(ctx, ns))
		require.NoError(t, store.InTenant(ctx, ns, func(tx *gorm.DB) error { return tx.Exec(ddl).Error }))
	}
	require.NoError(t, store.InTenant(ctx, "2025_bu01", func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO famille_art (famille) VALUES ('Outillage'), ('Peinture')").Error
	}))

	n, err := store.CopyTable(ctx, "2025_bu01", "2026_bu01", "famille_art", []string{"famille"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got []string
	require.NoError(t, store.InTenant(ctx, "2026_bu01", func(tx *gorm.DB) error {
		return tx.Raw("SELECT famille FROM famille_art ORDER BY famille").Scan(&got).Error
	}))
	assert.Equal(t, []string{"Outillage", "Peinture"}, got)

	t.Run("second copy violates the primary key", func(t *testing.T) {
		_, err := store.CopyTable(ctx, "2025_bu01", "2026_bu01", "famille_art", []string{"famille"})
		assert.Error(t, err)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := store.CopyTable(ctx, "2019_bu01", "2026_bu01", "famille_art", []string{"famille"})
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
	})
}

type countingPlugin struct {
	initialized int
}

func (p *countingPlugin) Name() string { return "counting" }

func (p *countingPlugin) Initialize(*gorm.DB) error {
	p.initialized++
	return nil
}

func TestFileStore_Use(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateNamespace(ctx, "2025_bu01"))

	plugin := &countingPlugin{}
	require.NoError(t, store.Use(plugin))
	assert.Equal(t, 1, plugin.initialized, "open files get the plugin")

	require.NoError(t, store.CreateNamespace(ctx, "2025_bu02"))
	assert.Equal(t, 2, plugin.initialized, "files opened later get it too")
}
