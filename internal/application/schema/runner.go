package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/tenantdb/internal/domain/shared"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/infrastructure/migration"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/erp/tenantdb/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RunnerConfig bounds a migration run
type RunnerConfig struct {
	// Concurrency is the number of tenants migrated at once
	Concurrency int
	// StatementTimeout bounds each migration transaction
	StatementTimeout time.Duration
	// Policy applies when ApplyOptions.Policy is empty
	Policy tenant.ErrorPolicy
}

// ApplyOptions selects the tenants and error policy of one run
type ApplyOptions struct {
	// Target restricts the run to one tenant; empty means every tenant
	Target string
	Policy tenant.ErrorPolicy
}

// Runner applies the migration catalog to tenants
type Runner struct {
	store    persistence.TenantStore
	registry TenantLister
	catalog  MigrationSource
	tracker  *migration.Tracker
	locker   TenantLocker
	archive  ReportArchive
	metrics  *telemetry.MigrationMetrics
	cfg      RunnerConfig
	logger   *zap.Logger
}

// NewRunner creates a new runner. A nil archive keeps reports in memory only.
func NewRunner(
	store persistence.TenantStore,
	registry TenantLister,
	catalog MigrationSource,
	locker TenantLocker,
	archive ReportArchive,
	metrics *telemetry.MigrationMetrics,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Policy == "" {
		cfg.Policy = tenant.FailFast
	}
	return &Runner{
		store:    store,
		registry: registry,
		catalog:  catalog,
		tracker:  migration.NewTracker(store.Dialect()),
		locker:   locker,
		archive:  archive,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// ApplyAll applies every pending migration to the selected tenants. Per-migration
// failures are reported, never returned; the error covers catalog, target and
// enumeration failures, all raised before any tenant is touched.
func (r *Runner) ApplyAll(ctx context.Context, opts ApplyOptions) (*tenant.RunReport, error) {
	policy, err := tenant.ParseErrorPolicy(string(opts.Policy), r.cfg.Policy)
	if err != nil {
		return nil, err
	}
	migrations, err := r.catalog.LoadMigrations()
	if err != nil {
		return nil, err
	}
	schemas, err := r.resolveTargets(ctx, opts.Target)
	if err != nil {
		return nil, err
	}

	report := &tenant.RunReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx, log := logger.WithRunID(ctx, r.logger, report.RunID)
	ctx, span := telemetry.StartServiceSpan(ctx, "runner", "apply_all",
		telemetry.SpanAttrRunID, report.RunID, telemetry.SpanAttrPolicy, string(policy))
	defer span.End()

	log.Info("Migration run started",
		zap.Int("tenants", len(schemas)),
		zap.Int("migrations", len(migrations)),
		zap.String("policy", string(policy)))

	perTenant := make([][]tenant.MigrationResult, len(schemas))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, schema := range schemas {
		g.Go(func() error {
			perTenant[i] = r.applyTenant(ctx, schema, migrations, policy)
			return nil
		})
	}
	_ = g.Wait()

	for _, results := range perTenant {
		report.Results = append(report.Results, results...)
	}
	report.FinishedAt = time.Now()

	summary := report.Summary()
	telemetry.SetAttributes(span, "applied", summary.Success, "failed", summary.Failed)
	log.Info("Migration run finished",
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("aborted", summary.Aborted),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	if r.archive != nil {
		if key, err := r.archive.ArchiveRun(ctx, report); err != nil {
			log.Warn("Failed to archive run report", zap.Error(err))
		} else if key != "" {
			log.Info("Run report archived", zap.String("key", key))
		}
	}
	return report, nil
}

// resolveTargets returns the one validated target, or every tenant when empty
func (r *Runner) resolveTargets(ctx context.Context, target string) ([]string, error) {
	if target == "" {
		return r.registry.ListTenants(ctx)
	}
	if err := tenant.ValidateSchemaName(target); err != nil {
		return nil, err
	}
	exists, err := r.store.NamespaceExists(ctx, target)
	if err != nil {
		return nil, &tenant.ConnectivityError{Schema: target, Err: err}
	}
	if !exists {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("tenant %s does not exist", target))
	}
	return []string{target}, nil
}

// applyTenant runs the catalog against one tenant in order. It holds the
// tenant lock throughout so no other run interleaves with it.
func (r *Runner) applyTenant(ctx context.Context, schema string, migrations []tenant.Migration, policy tenant.ErrorPolicy) []tenant.MigrationResult {
	ctx, log := logger.WithSchema(ctx, logger.FromContext(ctx), schema)
	ctx, span := telemetry.StartServiceSpan(ctx, "runner", "apply_tenant", telemetry.SpanAttrSchema, schema)
	defer span.End()

	release, err := r.locker.Acquire(ctx, schema)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Tenant lock not acquired", zap.Error(err))
		return r.failAll(ctx, schema, migrations, err)
	}
	defer release()

	if err := r.store.InTenant(ctx, schema, r.tracker.EnsureTable); err != nil {
		cerr := &tenant.ConnectivityError{Schema: schema, Err: err}
		telemetry.RecordError(span, cerr)
		log.Error("Tenant unreachable", zap.Error(err))
		return r.failAll(ctx, schema, migrations, cerr)
	}

	results := make([]tenant.MigrationResult, 0, len(migrations))
	stopped := false
	for _, m := range migrations {
		if stopped {
			results = append(results, tenant.MigrationResult{
				Schema:        schema,
				Version:       m.Version,
				Description:   m.Description,
				SkippedReason: tenant.SkipAborted,
			})
			r.metrics.RecordMigration(ctx, schema, m.Version, telemetry.OutcomeAborted, 0)
			continue
		}
		res := r.applyMigration(ctx, schema, m)
		results = append(results, res)
		if res.Failed() && policy == tenant.FailFast {
			stopped = true
		}
	}
	return results
}

// applyMigration runs one migration body and its tracking row in one transaction
func (r *Runner) applyMigration(ctx context.Context, schema string, m tenant.Migration) tenant.MigrationResult {
	log := logger.FromContext(ctx).With(zap.String("version", m.Version))
	ctx, span := telemetry.StartServiceSpan(ctx, "runner", "apply_migration",
		telemetry.SpanAttrSchema, schema, telemetry.SpanAttrVersion, m.Version)
	defer span.End()

	res := tenant.MigrationResult{Schema: schema, Version: m.Version, Description: m.Description}
	start := time.Now()

	var applied bool
	err := r.store.InTenant(ctx, schema, func(tx *gorm.DB) error {
		var err error
		applied, err = r.tracker.IsApplied(tx, m.Version)
		return err
	})
	if err != nil {
		return r.fail(ctx, span, log, res, start, err)
	}
	if applied {
		res.Success = true
		res.SkippedReason = tenant.SkipAlreadyApplied
		r.metrics.RecordMigration(ctx, schema, m.Version, telemetry.OutcomeSkipped, 0)
		log.Debug("Migration already applied")
		return res
	}

	mctx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()
	err = r.store.InTenant(mctx, schema, func(tx *gorm.DB) error {
		if _, err := tx.Statement.ConnPool.ExecContext(mctx, m.SQL); err != nil {
			return err
		}
		return r.tracker.Record(tx, m, time.Since(start).Milliseconds())
	})
	if err != nil {
		if errors.Is(mctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("statement timeout after %s: %w", r.cfg.timeout(), err)
		}
		return r.fail(ctx, span, log, res, start, err)
	}

	elapsed := time.Since(start)
	res.Success = true
	res.DurationMs = elapsed.Milliseconds()
	r.metrics.RecordMigration(ctx, schema, m.Version, telemetry.OutcomeApplied, elapsed)
	log.Info("Migration applied", zap.String("description", m.Description), zap.Duration("duration", elapsed))
	return res
}

func (r *Runner) fail(ctx context.Context, span trace.Span, log *zap.Logger, res tenant.MigrationResult, start time.Time, cause error) tenant.MigrationResult {
	elapsed := time.Since(start)
	err := &tenant.MigrationExecutionError{Schema: res.Schema, Version: res.Version, Err: cause}
	telemetry.RecordError(span, err)
	log.Error("Migration failed", zap.Error(err))
	res.Error = cause.Error()
	res.DurationMs = elapsed.Milliseconds()
	r.metrics.RecordMigration(ctx, res.Schema, res.Version, telemetry.OutcomeFailed, elapsed)
	return res
}

// failAll reports every migration of a tenant that could not be started as failed
func (r *Runner) failAll(ctx context.Context, schema string, migrations []tenant.Migration, cause error) []tenant.MigrationResult {
	results := make([]tenant.MigrationResult, len(migrations))
	for i, m := range migrations {
		results[i] = tenant.MigrationResult{
			Schema:      schema,
			Version:     m.Version,
			Description: m.Description,
			Error:       cause.Error(),
		}
		r.metrics.RecordMigration(ctx, schema, m.Version, telemetry.OutcomeFailed, 0)
	}
	return results
}

func (c RunnerConfig) timeout() time.Duration {
	if c.StatementTimeout <= 0 {
		return 5 * time.Minute
	}
	return c.StatementTimeout
}
