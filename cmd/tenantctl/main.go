package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/bootstrap"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/infrastructure/migration"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		migrationsPath string
		logLevel       string
		asJSON         bool
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: migration.path from config)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&asJSON, "json", false, "Print reports as JSON")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return 1
	}
	command, args := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		return 1
	}
	if migrationsPath != "" {
		cfg.Migration.Path = migrationsPath
	}
	out := printer{json: asJSON}

	// create and list only touch the migrations directory
	switch command {
	case "create":
		if len(args) < 1 {
			log.Error("Migration name required. Usage: tenantctl create <name>")
			return 1
		}
		mf, err := migration.CreateMigration(cfg.Migration.Path, args[0])
		if err != nil {
			log.Error("Failed to create migration", zap.Error(err))
			return 1
		}
		log.Info("Migration created", zap.String("version", mf.Version), zap.String("file", mf.Path))
		return 0

	case "list":
		migrations, err := migration.NewCatalog(cfg.Migration.Path).LoadMigrations()
		if err != nil {
			log.Error("Failed to list migrations", zap.Error(err))
			return 1
		}
		out.migrations(migrations)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Warn("Error during shutdown", zap.Error(err))
		}
	}()
	log = app.Logger

	switch command {
	case "status":
		fs := flag.NewFlagSet("status", flag.ContinueOnError)
		database := fs.String("database", "", "Only this tenant")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		statuses, err := app.Runner.Status(ctx, *database)
		if err != nil {
			log.Error("Status failed", zap.Error(err))
			return 1
		}
		out.status(statuses)
		for _, s := range statuses {
			if s.Error != "" {
				return 1
			}
		}
		return 0

	case "databases":
		names, err := app.Registry.ListTenants(ctx)
		if err != nil {
			log.Error("Failed to list tenants", zap.Error(err))
			return 1
		}
		out.lines(names)
		return 0

	case "apply":
		fs := flag.NewFlagSet("apply", flag.ContinueOnError)
		database := fs.String("database", "", "Only this tenant")
		dryRun := fs.Bool("dry-run", false, "Print pending migrations without applying them")
		policy := fs.String("policy", "", "fail-fast or continue-on-error (default: migration.policy)")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		if *dryRun {
			plans, err := app.Runner.Plan(ctx, *database)
			if err != nil {
				log.Error("Plan failed", zap.Error(err))
				return 1
			}
			out.plan(plans)
			return 0
		}
		report, err := app.Runner.ApplyAll(ctx, schema.ApplyOptions{
			Target: *database,
			Policy: tenant.ErrorPolicy(*policy),
		})
		if err != nil {
			log.Error("Apply failed", zap.Error(err))
			return 1
		}
		out.run(report)
		if !report.Succeeded() {
			return 1
		}
		return 0

	case "provision":
		fs := flag.NewFlagSet("provision", flag.ContinueOnError)
		policy := fs.String("policy", "", "fail-fast or continue-on-error (default: continue-on-error)")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		if fs.NArg() < 1 {
			log.Error("Schema required. Usage: tenantctl provision <schema>")
			return 1
		}
		report, err := app.Provisioner.Provision(ctx, fs.Arg(0), tenant.ErrorPolicy(*policy))
		if err != nil {
			log.Error("Provision failed", zap.Error(err))
			return 1
		}
		out.steps(report.Schema, report.Steps)
		if report.FailedSteps() > 0 {
			return 1
		}
		return 0

	case "rollover":
		fs := flag.NewFlagSet("rollover", flag.ContinueOnError)
		policy := fs.String("policy", "", "fail-fast or continue-on-error (default: continue-on-error)")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		if fs.NArg() < 3 {
			log.Error("Usage: tenantctl rollover <business-unit> <current-year> <new-year>")
			return 1
		}
		current, err1 := strconv.Atoi(fs.Arg(1))
		next, err2 := strconv.Atoi(fs.Arg(2))
		if err1 != nil || err2 != nil {
			log.Error("Years must be integers", zap.String("current", fs.Arg(1)), zap.String("new", fs.Arg(2)))
			return 1
		}
		report, err := app.Rollover.Rollover(ctx, schema.RolloverRequest{
			BusinessUnit: fs.Arg(0),
			CurrentYear:  current,
			NewYear:      next,
			Policy:       tenant.ErrorPolicy(*policy),
		})
		if err != nil {
			log.Error("Rollover failed", zap.Error(err))
			return 1
		}
		out.rollover(report)
		if report.FailedSteps() > 0 {
			return 1
		}
		return 0

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		return 1
	}
}

// printer writes command results to stdout; logs go to stderr
type printer struct {
	json bool
}

func (p printer) encode(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (p printer) lines(names []string) {
	if p.json {
		p.encode(names)
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func (p printer) migrations(ms []tenant.Migration) {
	if p.json {
		p.encode(ms)
		return
	}
	if len(ms) == 0 {
		fmt.Println("No migrations found")
		return
	}
	for _, m := range ms {
		fmt.Printf("  %s  %s\n", m.Version, m.Description)
	}
}

func (p printer) status(statuses []schema.TenantStatus) {
	if p.json {
		p.encode(statuses)
		return
	}
	for _, s := range statuses {
		if s.Error != "" {
			fmt.Printf("%-24s ERROR %s\n", s.Database, s.Error)
			continue
		}
		fmt.Printf("%-24s %d/%d applied, %d pending %v\n", s.Database, s.Applied, s.Total, s.Pending, s.PendingVersions)
	}
}

func (p printer) plan(plans []schema.TenantPlan) {
	if p.json {
		p.encode(plans)
		return
	}
	for _, pl := range plans {
		if pl.Error != "" {
			fmt.Printf("%-24s ERROR %s\n", pl.Database, pl.Error)
			continue
		}
		if len(pl.Pending) == 0 {
			fmt.Printf("%-24s up to date\n", pl.Database)
			continue
		}
		for _, m := range pl.Pending {
			fmt.Printf("%-24s would apply %s %s\n", pl.Database, m.Version, m.Description)
		}
	}
}

func (p printer) run(report *tenant.RunReport) {
	summary := report.Summary()
	if p.json {
		p.encode(struct {
			*tenant.RunReport
			Summary tenant.RunSummary `json:"summary"`
		}{report, summary})
		return
	}
	fmt.Printf("run %s: %d total, %d applied, %d skipped, %d failed, %d aborted\n",
		report.RunID, summary.Total, summary.Success, summary.Skipped, summary.Failed, summary.Aborted)
	for _, e := range summary.Errors {
		fmt.Printf("  FAILED %s %s: %s\n", e.Schema, e.Version, e.Error)
	}
}

func (p printer) steps(schemaName string, steps []tenant.StepResult) {
	if p.json {
		p.encode(steps)
		return
	}
	for _, s := range steps {
		switch {
		case s.Error != "":
			fmt.Printf("%s %s %s: FAILED %s\n", schemaName, s.Step, s.Table, s.Error)
		case s.SkippedReason != "":
			fmt.Printf("%s %s %s: skipped (%s)\n", schemaName, s.Step, s.Table, s.SkippedReason)
		case s.Step == tenant.StepCopyRows:
			fmt.Printf("%s %s %s: %d rows\n", schemaName, s.Step, s.Table, s.Rows)
		default:
			fmt.Printf("%s %s %s: ok\n", schemaName, s.Step, s.Table)
		}
	}
}

func (p printer) rollover(report *tenant.RolloverReport) {
	if p.json {
		p.encode(report)
		return
	}
	fmt.Printf("rollover %s -> %s\n", report.Source, report.Target)
	p.steps(report.Target, report.Provision.Steps)
	p.steps(report.Target, report.Copies)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `tenantctl - tenant schema lifecycle tool

Usage:
  tenantctl [flags] <command> [arguments]

Commands:
  status [-database S]                   Show applied and pending migrations per tenant
  apply [-database S] [-dry-run] [-policy P]
                                         Apply pending migrations
  databases                              List tenant namespaces
  provision [-policy P] <schema>         Create a tenant namespace and its tables
  rollover [-policy P] <bu> <cur> <new>  Open the next fiscal year of a business unit
  create <name>                          Create the next migration file
  list                                   List catalog migrations

Flags:
  -path string       Path to migrations directory
  -log-level string  Log level (debug, info, warn, error) (default "info")
  -json              Print reports as JSON

Environment:
  TENANTDB_* variables override config.toml (e.g. TENANTDB_DATABASE_DRIVER=sqlite).

Exit status is 1 when any tenant, migration or step failed.
`)
}
