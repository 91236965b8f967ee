package schema

import (
	"context"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/erp/tenantdb/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Provisioner creates tenant namespaces and their fixed table set
type Provisioner struct {
	store   persistence.TenantStore
	locker  TenantLocker
	metrics *telemetry.MigrationMetrics
	logger  *zap.Logger
}

// NewProvisioner creates a new provisioner. With a nil locker, provisioning
// does not coordinate with migration runs.
func NewProvisioner(store persistence.TenantStore, locker TenantLocker, metrics *telemetry.MigrationMetrics, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		store:   store,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
	}
}

// Provision creates schema if absent, then each table of persistence.TenantTables
// in its own transaction. Table failures land in the report; only an invalid
// name, a held tenant lock or an unreachable namespace is returned as an error.
func (p *Provisioner) Provision(ctx context.Context, schema string, policy tenant.ErrorPolicy) (*tenant.ProvisionReport, error) {
	if err := tenant.ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	policy, err := tenant.ParseErrorPolicy(string(policy), tenant.ContinueOnError)
	if err != nil {
		return nil, err
	}

	release, err := p.lock(ctx, schema)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.provision(ctx, schema, policy)
}

// lock takes the tenant lock of schema, if the provisioner has a locker
func (p *Provisioner) lock(ctx context.Context, schema string) (func(), error) {
	if p.locker == nil {
		return func() {}, nil
	}
	release, err := p.locker.Acquire(ctx, schema)
	if err != nil {
		p.logger.Warn("Tenant lock not acquired", zap.String("schema", schema), zap.Error(err))
		return nil, err
	}
	return release, nil
}

// provision does the work of Provision; the caller holds the tenant lock
func (p *Provisioner) provision(ctx context.Context, schema string, policy tenant.ErrorPolicy) (*tenant.ProvisionReport, error) {
	ctx, log := logger.WithSchema(ctx, p.logger, schema)
	ctx, span := telemetry.StartServiceSpan(ctx, "provisioner", "provision",
		telemetry.SpanAttrSchema, schema, telemetry.SpanAttrPolicy, string(policy))
	defer span.End()

	if err := p.store.CreateNamespace(ctx, schema); err != nil {
		cerr := &tenant.ConnectivityError{Schema: schema, Err: err}
		telemetry.RecordError(span, cerr)
		log.Error("Failed to create namespace", zap.Error(err))
		return nil, cerr
	}

	report := &tenant.ProvisionReport{Schema: schema, Steps: make([]tenant.StepResult, 0, len(persistence.TenantTables))}
	dialect := p.store.Dialect()
	stopped := false

	for _, table := range persistence.TenantTables {
		step := tenant.StepResult{Step: tenant.StepCreateTable, Table: table.Name}
		if stopped {
			step.SkippedReason = tenant.SkipAborted
			report.Steps = append(report.Steps, step)
			p.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeAborted)
			continue
		}

		err := p.createTable(ctx, schema, table, dialect)
		if err != nil {
			stepErr := &tenant.ProvisionStepError{Schema: schema, Step: step.Step + " " + table.Name, Err: err}
			log.Warn("Table creation failed", zap.String("table", table.Name), zap.Error(stepErr))
			step.Error = err.Error()
			p.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeFailed)
			stopped = policy == tenant.FailFast
		} else {
			step.Success = true
			p.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeApplied)
		}
		report.Steps = append(report.Steps, step)
	}

	log.Info("Namespace provisioned",
		zap.Int("tables", len(report.Steps)),
		zap.Int("failed", report.FailedSteps()))
	return report, nil
}

func (p *Provisioner) createTable(ctx context.Context, schema string, table persistence.TableDef, d persistence.Dialect) error {
	ddl, err := table.CreateSQL(d)
	if err != nil {
		return err
	}
	return p.store.InTenant(ctx, schema, func(tx *gorm.DB) error {
		return tx.Exec(ddl).Error
	})
}
