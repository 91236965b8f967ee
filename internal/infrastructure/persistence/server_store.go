package persistence

import (
	"context"
	"fmt"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"gorm.io/gorm"
)

const (
	listNamespacesSQL  = "SELECT schema_name FROM information_schema.schemata ORDER BY schema_name"
	namespaceExistsSQL = "SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?"
)

// ServerStore keeps all tenants on one PostgreSQL or MySQL server behind a
// single pool. Tenant transactions are scoped with the dialect's ScopeSQL.
type ServerStore struct {
	db      *gorm.DB
	dialect Dialect
}

// NewServerStore wraps an open connection pool
func NewServerStore(db *gorm.DB, dialect Dialect) *ServerStore {
	return &ServerStore{db: db, dialect: dialect}
}

// Dialect implements TenantStore
func (s *ServerStore) Dialect() Dialect { return s.dialect }

// ListNamespaces implements TenantStore
func (s *ServerStore) ListNamespaces(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Raw(listNamespacesSQL).Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	return names, nil
}

// NamespaceExists implements TenantStore
func (s *ServerStore) NamespaceExists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Raw(namespaceExistsSQL, name).Scan(&n).Error; err != nil {
		return false, fmt.Errorf("lookup namespace %s: %w", name, err)
	}
	return n > 0, nil
}

// CreateNamespace implements TenantStore
func (s *ServerStore) CreateNamespace(ctx context.Context, name string) error {
	if err := tenant.ValidateIdentifier(name); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec(s.dialect.CreateNamespaceSQL(name)).Error; err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// InTenant implements TenantStore
func (s *ServerStore) InTenant(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error {
	if err := tenant.ValidateIdentifier(schema); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(s.dialect.ScopeSQL(schema)).Error; err != nil {
			return fmt.Errorf("scope transaction to %s: %w", schema, err)
		}
		return fn(tx)
	})
}

// CopyTable implements TenantStore
func (s *ServerStore) CopyTable(ctx context.Context, from, to, table string, columns []string) (int64, error) {
	for _, id := range append([]string{from, to, table}, columns...) {
		if err := tenant.ValidateIdentifier(id); err != nil {
			return 0, err
		}
	}
	q := s.dialect.QuoteIdent
	cols := columnList(s.dialect, columns)
	stmt := fmt.Sprintf("INSERT INTO %s.%s (%s) SELECT %s FROM %s.%s",
		q(to), q(table), cols, cols, q(from), q(table))

	res := s.db.WithContext(ctx).Exec(stmt)
	if res.Error != nil {
		return 0, fmt.Errorf("copy %s from %s to %s: %w", table, from, to, res.Error)
	}
	return res.RowsAffected, nil
}

// Stats implements TenantStore
func (s *ServerStore) Stats() (ConnectionStats, error) {
	return poolStats(s.db)
}

// Use implements TenantStore
func (s *ServerStore) Use(plugin gorm.Plugin) error {
	return s.db.Use(plugin)
}

// Ping implements TenantStore
func (s *ServerStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements TenantStore
func (s *ServerStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
