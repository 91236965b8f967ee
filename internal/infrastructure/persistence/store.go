package persistence

import (
	"context"
	"errors"

	"github.com/erp/tenantdb/internal/infrastructure/config"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNamespaceNotFound is returned when a tenant namespace does not exist
var ErrNamespaceNotFound = errors.New("namespace does not exist")

// TenantStore is the connection provider of the tenant layer. A namespace is a
// PostgreSQL schema, a MySQL database or a SQLite file depending on the driver.
type TenantStore interface {
	// Dialect returns the SQL dialect of the backend
	Dialect() Dialect
	// ListNamespaces returns every namespace visible on the server, tenant or not
	ListNamespaces(ctx context.Context) ([]string, error)
	// NamespaceExists reports whether a namespace exists
	NamespaceExists(ctx context.Context, name string) (bool, error)
	// CreateNamespace creates a namespace if absent
	CreateNamespace(ctx context.Context, name string) error
	// InTenant runs fn in one transaction in which unqualified names resolve
	// inside schema. fn's error rolls the transaction back.
	InTenant(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error
	// CopyTable inserts every row of from.table into to.table with one
	// statement and returns the number of rows copied
	CopyTable(ctx context.Context, from, to, table string, columns []string) (int64, error)
	// Stats returns pool statistics of the main connection
	Stats() (ConnectionStats, error)
	// Use installs a gorm plugin on every connection pool, current and future
	Use(plugin gorm.Plugin) error
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	// Close releases every connection
	Close() error
}

// NewTenantStore builds the store for the configured driver
func NewTenantStore(cfg *config.DatabaseConfig, log gormlogger.Interface) (TenantStore, error) {
	if cfg.Driver == config.DriverSQLite {
		return NewFileStore(cfg.SQLiteDir, log)
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewServerStore(db, dialect), nil
}
