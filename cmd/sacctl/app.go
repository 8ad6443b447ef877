package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditapp "github.com/sac/membership/internal/application/audit"
	"github.com/sac/membership/internal/application/export"
	importapp "github.com/sac/membership/internal/application/import"
	membershipapp "github.com/sac/membership/internal/application/membership"
	orgapp "github.com/sac/membership/internal/application/organization"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/event"
	"github.com/sac/membership/internal/infrastructure/job"
	"github.com/sac/membership/internal/infrastructure/lock"
	"github.com/sac/membership/internal/infrastructure/persistence"
	"github.com/sac/membership/internal/infrastructure/storage"
	"github.com/sac/membership/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired services of one sacctl invocation
type app struct {
	cfg *config.Config
	log *zap.Logger

	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler

	db     *persistence.Database
	locker shared.Locker
	runner *job.Runner

	groupRepo organization.GroupRepository
	persons   people.PersonRepository
	reasons   membership.TerminationReasonRepository

	groups      *orgapp.GroupService
	memberships *membershipapp.MembershipService
	households  *membershipapp.HouseholdService
	exporter    *export.Exporter
	imports     *importapp.ImportService
	runs        *importapp.ImportHistoryService
	history     *auditapp.HistoryService
}

// newApp connects to the database and wires every service
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if err = a.initTelemetry(ctx); err != nil {
		return nil, err
	}

	a.db, err = persistence.NewDatabase(&cfg.Database, a.log, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		// postgres schemas are owned by the migrate command
		if err = a.db.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err = telemetry.RegisterDBTracing(a.db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBSystem:        dbSystem,
		SlowQueryThresh: cfg.Database.SlowQueryThreshold,
	}, a.log); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	a.locker, err = lock.NewFactory(cfg.Redis, lock.WithLogger(a.log)).Create()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, &cfg.Storage, a.log)
	if err != nil {
		return nil, err
	}

	fees, err := invoicing.NewFeeSchedule(cfg.Fees.Stammsektion, cfg.Fees.Zusatzsektion)
	if err != nil {
		return nil, fmt.Errorf("invalid fee configuration: %w", err)
	}

	a.runner = job.NewRunner(job.ConfigFrom(cfg.Job), job.Hooks{
		OnFailure: func(ctx context.Context, j *job.Job, err error) {
			a.log.Error("Job failed", zap.String("job", j.Name), zap.Int("attempts", j.Attempts), zap.Error(err))
			telemetry.Default().RecordJobFailure(ctx, j.Name)
		},
	}, a.log.Named("job"))
	a.runner.Start(ctx)

	db := a.db.DB
	tx := persistence.NewGormTransactor(db)
	a.groupRepo = persistence.NewGormGroupRepository(db)
	a.persons = persistence.NewGormPersonRepository(db)
	a.reasons = persistence.NewGormTerminationReasonRepository(db)
	roles := persistence.NewGormRoleRepository(db)
	quals := persistence.NewGormQualificationRepository(db)
	versions := persistence.NewGormVersionRepository(db)

	bus := event.NewInMemoryEventBus(a.log)
	bus.Subscribe(event.NewLogHandler(a.log.Named("event")))
	bus.Subscribe(auditapp.NewRecorder(versions))

	a.groups = orgapp.NewGroupService(a.groupRepo, roles, tx, bus)
	deps := membershipapp.Dependencies{
		Tx:          tx,
		Groups:      a.groupRepo,
		GroupFinder: a.groups,
		People:      a.persons,
		Roles:       roles,
		Reasons:     a.reasons,
		Invoices:    persistence.NewGormExternalInvoiceRepository(db),
		Fees:        fees,
		Events:      bus,
		Clock:       shared.SystemClock,
	}
	a.memberships = membershipapp.NewMembershipService(deps)
	a.households = membershipapp.NewHouseholdService(deps)
	a.history = auditapp.NewHistoryService(versions)

	a.exporter = export.NewExporter(
		export.NewService(a.groupRepo, a.persons, roles, quals),
		store, a.runner, cfg.Export,
	)

	a.runs = importapp.NewImportHistoryService(persistence.NewGormImportRunRepository(db))
	a.imports = importapp.NewImportService(a.runs, a.locker, tx, cfg.Import, a.log.Named("import"),
		importapp.NewGroupImporter(a.groups, a.groupRepo),
		importapp.NewPeopleImporter(a.persons),
		importapp.NewMembershipImporter(a.persons, a.groupRepo, a.groups, roles, a.reasons),
		importapp.NewQualificationImporter(a.persons, quals),
	)

	return a, nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	tc := a.cfg.Telemetry
	name := a.cfg.App.Name

	var err error
	if a.profiler, err = telemetry.NewProfiler(tc, name, a.log); err != nil {
		return err
	}
	if a.tracer, err = telemetry.NewTracerProvider(ctx, tc, name, a.log); err != nil {
		return err
	}
	if a.meter, err = telemetry.NewMeterProvider(ctx, tc, name, a.log); err != nil {
		return err
	}
	if a.logs, err = telemetry.NewLoggerProvider(ctx, tc, name, a.log); err != nil {
		return err
	}
	a.log = a.logs.Bridge(a.log, name, zapcore.InfoLevel)
	return nil
}

// close stops the runner and flushes telemetry. Errors are logged.
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	if a.runner != nil {
		errs = append(errs, a.runner.Stop(ctx))
	}
	if a.locker != nil {
		errs = append(errs, a.locker.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Shutdown(ctx))
	}
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.profiler != nil {
		errs = append(errs, a.profiler.Stop())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Shutdown finished with errors", zap.Error(err))
	}
}
