package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteExt = ".db"

// FileStore keeps each tenant in its own SQLite file under one directory.
// Each file gets a single-connection pool, so a tenant's statements serialize.
type FileStore struct {
	dir     string
	gormCfg *gorm.Config

	mu      sync.Mutex
	dbs     map[string]*gorm.DB
	plugins []gorm.Plugin
}

// NewFileStore creates dir if needed
func NewFileStore(dir string, log gormlogger.Interface) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:     dir,
		gormCfg: gormConfig(log),
		dbs:     make(map[string]*gorm.DB),
	}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+sqliteExt)
}

// open returns the pool of a namespace. With create unset a missing file is
// ErrNamespaceNotFound rather than a silently created empty database.
func (s *FileStore) open(name string, create bool) (*gorm.DB, error) {
	if err := tenant.ValidateIdentifier(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[name]; ok {
		return db, nil
	}
	if !create {
		if _, err := os.Stat(s.path(name)); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNamespaceNotFound)
		}
	}

	dsn := "file:" + s.path(name) + "?_foreign_keys=1&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), s.gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	for _, p := range s.plugins {
		if err := db.Use(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
	}

	s.dbs[name] = db
	return db, nil
}

// Dialect implements TenantStore
func (s *FileStore) Dialect() Dialect { return SQLiteDialect{} }

// ListNamespaces implements TenantStore
func (s *FileStore) ListNamespaces(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sqliteExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), sqliteExt))
	}
	sort.Strings(names)
	return names, nil
}

// NamespaceExists implements TenantStore
func (s *FileStore) NamespaceExists(ctx context.Context, name string) (bool, error) {
	if err := tenant.ValidateIdentifier(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("lookup namespace %s: %w", name, err)
	}
}

// CreateNamespace implements TenantStore
func (s *FileStore) CreateNamespace(ctx context.Context, name string) error {
	_, err := s.open(name, true)
	return err
}

// InTenant implements TenantStore
func (s *FileStore) InTenant(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error {
	db, err := s.open(schema, false)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(fn)
}

// CopyTable implements TenantStore. The source file is attached to the
// destination connection for the duration of the copy.
func (s *FileStore) CopyTable(ctx context.Context, from, to, table string, columns []string) (int64, error) {
	for _, id := range append([]string{from, table}, columns...) {
		if err := tenant.ValidateIdentifier(id); err != nil {
			return 0, err
		}
	}
	if ok, err := s.NamespaceExists(ctx, from); err != nil {
		return 0, err
	} else if !ok {
		return 0, fmt.Errorf("%s: %w", from, ErrNamespaceNotFound)
	}
	db, err := s.open(to, false)
	if err != nil {
		return 0, err
	}

	d := s.Dialect()
	cols := columnList(d, columns)
	stmt := fmt.Sprintf("INSERT INTO main.%s (%s) SELECT %s FROM src.%s",
		d.QuoteIdent(table), cols, cols, d.QuoteIdent(table))

	var copied int64
	err = db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE ? AS src", s.path(from)).Error; err != nil {
			return fmt.Errorf("attach %s: %w", from, err)
		}
		defer conn.Exec("DETACH DATABASE src")

		res := conn.Exec(stmt)
		copied = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("copy %s from %s to %s: %w", table, from, to, err)
	}
	return copied, nil
}

// Stats implements TenantStore; it sums the pools of every open tenant file
func (s *FileStore) Stats() (ConnectionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total ConnectionStats
	for _, db := range s.dbs {
		st, err := poolStats(db)
		if err != nil {
			return ConnectionStats{}, err
		}
		total.MaxOpenConnections += st.MaxOpenConnections
		total.OpenConnections += st.OpenConnections
		total.InUse += st.InUse
		total.Idle += st.Idle
		total.WaitCount += st.WaitCount
		total.WaitDuration += st.WaitDuration
	}
	return total, nil
}

// Use implements TenantStore; files opened later get the plugin too
func (s *FileStore) Use(plugin gorm.Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, db := range s.dbs {
		if err := db.Use(plugin); err != nil {
			return fmt.Errorf("install %s on %s: %w", plugin.Name(), name, err)
		}
	}
	s.plugins = append(s.plugins, plugin)
	return nil
}

// Ping implements TenantStore
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// Close implements TenantStore
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, db := range s.dbs {
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		delete(s.dbs, name)
	}
	return errors.Join(errs...)
}
