// Package bootstrap assembles the tenant services from configuration. The
// HTTP server and the tenantctl command share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/cache"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/infrastructure/migration"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/erp/tenantdb/internal/infrastructure/storage"
	"github.com/erp/tenantdb/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Version is reported by telemetry resources and /system/info
var Version = "1.0.0"

// App holds every long-lived component of a process
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       persistence.TenantStore
	Registry    *persistence.Registry
	Catalog     *migration.Catalog
	Runner      *schema.Runner
	Provisioner *schema.Provisioner
	Rollover    *schema.RolloverService

	tracer  *telemetry.TracerProvider
	meter   *telemetry.MeterProvider
	logs    *telemetry.LoggerProvider
	closers []func() error
}

// New connects to the database and wires the services. On error everything
// opened so far is released. With telemetry enabled, app.Logger also exports
// to the collector and every service logs through it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	app.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return app, fmt.Errorf("tracing: %w", err)
	}
	app.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return app, fmt.Errorf("metrics: %w", err)
	}
	app.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return app, fmt.Errorf("log export: %w", err)
	}
	log = app.logs.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	app.Logger = log

	metrics, err := telemetry.NewMigrationMetrics(app.meter.Meter("tenantdb"))
	if err != nil {
		return app, err
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowQueryThresh))
	app.Store, err = persistence.NewTenantStore(&cfg.Database, gormLog)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, app.Store.Close)
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Telemetry.DBTraceEnabled {
		if err = telemetry.RegisterDBTracing(app.Store, cfg.Database.Driver, log); err != nil {
			return app, fmt.Errorf("database tracing: %w", err)
		}
	}

	locker, closeLocker, err := cache.NewTenantLocker(cfg.Redis, cfg.Migration.LockTTL, log)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, closeLocker)

	var archive schema.ReportArchive = storage.NopReportArchive{}
	if cfg.Storage.Enabled {
		archive, err = storage.NewS3ReportArchive(ctx, &cfg.Storage, log)
		if err != nil {
			return app, err
		}
	}

	policy, err := tenant.ParseErrorPolicy(cfg.Migration.Policy, tenant.FailFast)
	if err != nil {
		return app, err
	}

	app.Registry = persistence.NewRegistry(app.Store)
	app.Catalog = migration.NewCatalog(cfg.Migration.Path)
	app.Runner = schema.NewRunner(app.Store, app.Registry, app.Catalog, locker, archive, metrics,
		schema.RunnerConfig{
			Concurrency:      cfg.Migration.Concurrency,
			StatementTimeout: cfg.Migration.StatementTimeout,
			Policy:           policy,
		}, log.Named("runner"))
	app.Provisioner = schema.NewProvisioner(app.Store, locker, metrics, log.Named("provisioner"))
	app.Rollover = schema.NewRolloverService(app.Store, app.Provisioner, archive, metrics, log.Named("rollover"))
	return app, nil
}

// Close flushes telemetry and releases connections in reverse order
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// TracingEnabled reports whether spans are exported
func (a *App) TracingEnabled() bool {
	return a.tracer != nil && a.tracer.IsEnabled()
}
