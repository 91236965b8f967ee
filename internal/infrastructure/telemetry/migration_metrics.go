package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome values for AttrOutcome.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// MigrationMetrics records tenant migration and rollover activity.
// A nil *MigrationMetrics is valid and records nothing.
type MigrationMetrics struct {
	migrationsTotal   *Counter
	migrationDuration *Histogram
	rolloverSteps     *Counter
}

// NewMigrationMetrics registers the tenant metrics on meter.
func NewMigrationMetrics(meter metric.Meter) (*MigrationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	total, err := NewCounter(meter, "tenant_migrations_total",
		"Migrations processed per tenant, by outcome", "{migration}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "tenant_migration_duration_seconds",
		Description: "Duration of one migration transaction",
		Unit:        "s",
		Boundaries:  MigrationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	steps, err := NewCounter(meter, "tenant_rollover_steps_total",
		"Provisioning and copy steps executed by exercise rollovers, by outcome", "{step}")
	if err != nil {
		return nil, err
	}

	return &MigrationMetrics{
		migrationsTotal:   total,
		migrationDuration: duration,
		rolloverSteps:     steps,
	}, nil
}

// RecordMigration counts one migration result. Duration is only observed for
// migrations that actually ran.
func (m *MigrationMetrics) RecordMigration(ctx context.Context, schema, version, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.migrationsTotal.Inc(ctx, AttrSchema.String(schema), AttrOutcome.String(outcome))
	if outcome == OutcomeApplied || outcome == OutcomeFailed {
		m.migrationDuration.RecordDuration(ctx, d,
			AttrSchema.String(schema), AttrVersion.String(version), AttrOutcome.String(outcome))
	}
}

// RecordStep counts one provisioning or copy step.
func (m *MigrationMetrics) RecordStep(ctx context.Context, step, table, outcome string) {
	if m == nil {
		return
	}
	m.rolloverSteps.Inc(ctx, AttrStep.String(step), AttrTable.String(table), AttrOutcome.String(outcome))
}
