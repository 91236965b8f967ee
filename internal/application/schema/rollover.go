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

// RolloverRequest opens fiscal year NewYear for a business unit from CurrentYear
type RolloverRequest struct {
	BusinessUnit string             `json:"business_unit" binding:"required"`
	CurrentYear  int                `json:"current_year" binding:"required"`
	NewYear      int                `json:"new_year" binding:"required"`
	Policy       tenant.ErrorPolicy `json:"policy"`
}

// RolloverService creates the next exercise of a business unit and carries
// its reference data over
type RolloverService struct {
	store       persistence.TenantStore
	provisioner *Provisioner
	archive     ReportArchive
	metrics     *telemetry.MigrationMetrics
	logger      *zap.Logger
}

// NewRolloverService creates a new rollover service
func NewRolloverService(
	store persistence.TenantStore,
	provisioner *Provisioner,
	archive ReportArchive,
	metrics *telemetry.MigrationMetrics,
	logger *zap.Logger,
) *RolloverService {
	return &RolloverService{
		store:       store,
		provisioner: provisioner,
		archive:     archive,
		metrics:     metrics,
		logger:      logger,
	}
}

// Rollover provisions the new exercise and copies famille_art, fournisseur,
// client and article from the current one. Transactional tables start empty.
// A reference table that already holds rows in the destination is left alone,
// so a partially failed rollover can be run again. The destination's tenant
// lock is held from provisioning to the last copy.
func (s *RolloverService) Rollover(ctx context.Context, req RolloverRequest) (*tenant.RolloverReport, error) {
	source, target, err := tenant.NextExercise(req.BusinessUnit, req.CurrentYear, req.NewYear)
	if err != nil {
		return nil, err
	}
	policy, err := tenant.ParseErrorPolicy(string(req.Policy), tenant.ContinueOnError)
	if err != nil {
		return nil, err
	}
	src, dst := source.SchemaName(), target.SchemaName()

	ctx, log := logger.WithSchema(ctx, s.logger, dst)
	log = log.With(zap.String("source", src))
	ctx = logger.WithContext(ctx, log)
	ctx, span := telemetry.StartServiceSpan(ctx, "rollover", "rollover",
		telemetry.SpanAttrSchema, dst, "source", src, telemetry.SpanAttrPolicy, string(policy))
	defer span.End()

	if err := s.checkSource(ctx, src); err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Rollover source unavailable", zap.Error(err))
		return nil, err
	}

	release, err := s.provisioner.lock(ctx, dst)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	provision, err := s.provisioner.provision(ctx, dst, policy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &tenant.RolloverReport{Source: src, Target: dst, Provision: *provision}
	stopped := policy == tenant.FailFast && provision.FailedSteps() > 0

	for _, table := range persistence.ReferenceTables() {
		if stopped {
			report.Copies = append(report.Copies, tenant.StepResult{
				Step: tenant.StepCopyRows, Table: table.Name, SkippedReason: tenant.SkipAborted,
			})
			s.metrics.RecordStep(ctx, tenant.StepCopyRows, table.Name, telemetry.OutcomeAborted)
			continue
		}
		step := s.copyTable(ctx, src, dst, table)
		report.Copies = append(report.Copies, step)
		stopped = step.Error != "" && policy == tenant.FailFast
	}

	log.Info("Exercise rollover finished", zap.Int("failed_steps", report.FailedSteps()))

	if s.archive != nil {
		if key, err := s.archive.ArchiveRollover(ctx, report); err != nil {
			log.Warn("Failed to archive rollover report", zap.Error(err))
		} else if key != "" {
			log.Info("Rollover report archived", zap.String("key", key))
		}
	}
	return report, nil
}

// checkSource requires the source namespace and a readable famille_art
func (s *RolloverService) checkSource(ctx context.Context, src string) error {
	exists, err := s.store.NamespaceExists(ctx, src)
	if err != nil {
		return &tenant.ConnectivityError{Schema: src, Err: err}
	}
	if !exists {
		return &tenant.SourceNotFoundError{Schema: src}
	}
	err = s.store.InTenant(ctx, src, func(tx *gorm.DB) error {
		_, err := persistence.CountRows(tx, s.store.Dialect(), "famille_art")
		return err
	})
	if err != nil {
		return &tenant.SourceNotFoundError{Schema: src, Err: err}
	}
	return nil
}

func (s *RolloverService) copyTable(ctx context.Context, src, dst string, table persistence.TableDef) tenant.StepResult {
	log := logger.FromContext(ctx).With(zap.String("table", table.Name))
	step := tenant.StepResult{Step: tenant.StepCopyRows, Table: table.Name}

	var existing int64
	err := s.store.InTenant(ctx, dst, func(tx *gorm.DB) error {
		var err error
		existing, err = persistence.CountRows(tx, s.store.Dialect(), table.Name)
		return err
	})
	if err == nil && existing > 0 {
		step.Success = true
		step.SkippedReason = tenant.SkipDestinationNotEmpty
		step.Rows = existing
		s.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeSkipped)
		log.Info("Destination table not empty, copy skipped", zap.Int64("rows", existing))
		return step
	}
	if err == nil {
		step.Rows, err = s.store.CopyTable(ctx, src, dst, table.Name, table.Columns)
	}
	if err != nil {
		stepErr := &tenant.ProvisionStepError{Schema: dst, Step: step.Step + " " + table.Name, Err: err}
		log.Warn("Reference copy failed", zap.Error(stepErr))
		step.Rows = 0
		step.Error = err.Error()
		s.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeFailed)
		return step
	}

	step.Success = true
	s.metrics.RecordStep(ctx, step.Step, table.Name, telemetry.OutcomeApplied)
	log.Info("Reference data copied", zap.Int64("rows", step.Rows))
	return step
}
