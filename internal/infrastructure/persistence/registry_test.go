package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ListTenants(t *testing.T) {
	t.Run("keeps only tenant namespaces, sorted", func(t *testing.T) {
		store := newFileStore(t)
		ctx := context.Background()
		for _, ns := range []string{"2025_bu02", "scratch", "2024_bu01", "2025_bu1"} {
			require.NoError(t, store.CreateNamespace(ctx, ns))
		}

		tenants, err := NewRegistry(store).ListTenants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024_bu01", "2025_bu02"}, tenants)
	})

	t.Run("empty server yields an empty list", func(t *testing.T) {
		tenants, err := NewRegistry(newFileStore(t)).ListTenants(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tenants)
	})

	t.Run("enumeration failure is a connectivity error", func(t *testing.T) {
		store, mock, mockDB := newMockServerStore(t)
		defer mockDB.Close()
		mock.ExpectQuery(`SELECT schema_name`).WillReturnError(errors.New("connection refused"))

		_, err := NewRegistry(store).ListTenants(context.Background())
		var connErr *tenant.ConnectivityError
		assert.True(t, errors.As(err, &connErr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres system schemas are filtered", func(t *testing.T) {
		store, mock, mockDB := newMockServerStore(t)
		defer mockDB.Close()
		mock.ExpectQuery(`SELECT schema_name`).WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).
			AddRow("information_schema").AddRow("pg_catalog").AddRow("public").AddRow("2025_bu01"))

		tenants, err := NewRegistry(store).ListTenants(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"2025_bu01"}, tenants)
	})
}
