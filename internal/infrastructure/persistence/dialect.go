package persistence

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect holds the per-backend SQL fragments the tenant layer needs.
// Every name passed in has already passed tenant.ValidateIdentifier.
type Dialect interface {
	// Name is the driver name from configuration
	Name() string
	// QuoteIdent quotes a single identifier
	QuoteIdent(name string) string
	// AutoIncrementPK is the column definition of a surrogate integer key
	AutoIncrementPK() string
	// CreateNamespaceSQL creates a schema (PostgreSQL) or database (MySQL)
	CreateNamespaceSQL(name string) string
	// ScopeSQL makes unqualified names resolve inside name for the current transaction
	ScopeSQL(name string) string
}

// DialectFor returns the dialect of a configured driver
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return PostgresDialect{}, nil
	case "mysql":
		return MySQLDialect{}, nil
	case "sqlite":
		return SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// PostgresDialect maps a tenant to a schema of one database
type PostgresDialect struct{}

func (PostgresDialect) Name() string                  { return "postgres" }
func (PostgresDialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }
func (PostgresDialect) AutoIncrementPK() string       { return "SERIAL PRIMARY KEY" }

func (d PostgresDialect) CreateNamespaceSQL(name string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdent(name)
}

// ScopeSQL uses SET LOCAL so the search path reverts at commit or rollback
func (d PostgresDialect) ScopeSQL(name string) string {
	return "SET LOCAL search_path TO " + d.QuoteIdent(name)
}

// MySQLDialect maps a tenant to a database of one server
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return "mysql" }

func (MySQLDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQLDialect) AutoIncrementPK() string { return "INT AUTO_INCREMENT PRIMARY KEY" }

func (d MySQLDialect) CreateNamespaceSQL(name string) string {
	return "CREATE DATABASE IF NOT EXISTS " + d.QuoteIdent(name) + " CHARACTER SET utf8mb4"
}

// ScopeSQL switches the session database. USE outlives the transaction, so
// every tenant transaction issues it first.
func (d MySQLDialect) ScopeSQL(name string) string {
	return "USE " + d.QuoteIdent(name)
}

// SQLiteDialect maps a tenant to its own database file; scoping is the file itself
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string                  { return "sqlite" }
func (SQLiteDialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }
func (SQLiteDialect) AutoIncrementPK() string       { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (SQLiteDialect) CreateNamespaceSQL(string) string {
	return ""
}
func (SQLiteDialect) ScopeSQL(string) string { return "" }

// columnList quotes and joins column names
func columnList(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
