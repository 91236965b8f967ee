package migration

import (
	"fmt"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"gorm.io/gorm"
)

// TrackingTable records the migrations applied to one tenant
const TrackingTable = "_migrations"

// Tracker reads and writes the tracking table. Every method takes a
// transaction already scoped to the tenant, so the table name stays unqualified.
type Tracker struct {
	dialect persistence.Dialect
}

// NewTracker creates a tracker for a dialect
func NewTracker(dialect persistence.Dialect) *Tracker {
	return &Tracker{dialect: dialect}
}

// EnsureTable creates the tracking table if absent
func (t *Tracker) EnsureTable(tx *gorm.DB) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s,
		version VARCHAR(255) NOT NULL UNIQUE,
		description VARCHAR(255),
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		duration_ms BIGINT DEFAULT 0
	)`, TrackingTable, t.dialect.AutoIncrementPK())
	if err := tx.Exec(ddl).Error; err != nil {
		return fmt.Errorf("ensure %s: %w", TrackingTable, err)
	}
	return nil
}

// HasTable reports whether the tracking table exists, without creating it.
// Read-only callers use it so that status never writes to a tenant.
func (t *Tracker) HasTable(tx *gorm.DB) bool {
	return tx.Migrator().HasTable(TrackingTable)
}

// IsApplied reports whether version has a tracking row
func (t *Tracker) IsApplied(tx *gorm.DB, version string) (bool, error) {
	var n int64
	err := tx.Raw("SELECT COUNT(*) FROM "+TrackingTable+" WHERE version = ?", version).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup version %s: %w", version, err)
	}
	return n > 0, nil
}

// Record inserts the tracking row of m. The unique constraint on version makes
// a second Record of the same version fail.
func (t *Tracker) Record(tx *gorm.DB, m tenant.Migration, durationMs int64) error {
	err := tx.Exec("INSERT INTO "+TrackingTable+" (version, description, duration_ms) VALUES (?, ?, ?)",
		m.Version, m.Description, durationMs).Error
	if err != nil {
		return fmt.Errorf("record version %s: %w", m.Version, err)
	}
	return nil
}

// Applied lists tracking rows in insertion order
func (t *Tracker) Applied(tx *gorm.DB) ([]tenant.MigrationRecord, error) {
	var records []tenant.MigrationRecord
	err := tx.Raw("SELECT version, description, applied_at, duration_ms FROM " + TrackingTable + " ORDER BY id").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", TrackingTable, err)
	}
	return records, nil
}
