package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	crdb "github.com/cockroachdb/errors"

	"WasteReminder/internal/acquisition"
	"WasteReminder/internal/config"
	"WasteReminder/internal/domain"
	"WasteReminder/internal/httpapi"
	"WasteReminder/internal/infrastructure/parser"
	"WasteReminder/internal/infrastructure/scheduler"
	"WasteReminder/internal/infrastructure/storage"
	"WasteReminder/internal/infrastructure/upstream"
	"WasteReminder/internal/logging"
	"WasteReminder/internal/reminder"
	"WasteReminder/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	source *parser.StrategySource
}

// New validates cfg and builds the acquisition side of the application.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	loc := cfg.Scheduler.Location()
	now := func() time.Time { return time.Now().In(loc) }

	client := upstream.NewClient(upstream.Options{
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Logger:            baseLogger.With("component", "upstream"),
	})
	normalizer := reminder.NewNormalizer(now, cfg.Source.YearRollover)
	registry := parser.NewRegistry(cfg.Source, client, normalizer, now, baseLogger)

	if err := cfg.Validate(registry.Names()); err != nil {
		return nil, crdb.Wrap(err, "invalid configuration")
	}

	engine := acquisition.NewEngine(registry, baseLogger.With("component", "acquisition"))
	addr := domain.Address{PostalCode: cfg.Address.PostalCode, HouseNumber: cfg.Address.HouseNumber}
	source := parser.NewStrategySource(engine, cfg.Source.Strategy, addr, baseLogger.With("component", "source"))

	return &Application{cfg: cfg, logger: baseLogger, source: source}, nil
}

// Fetch performs a single acquisition run; with store set the result also
// replaces the stored dates.
func (a *Application) Fetch(ctx context.Context, store bool) (domain.ReminderMapping, error) {
	if !store {
		return a.source.FetchReminders(ctx)
	}

	db, repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	defer a.closeDB(db)

	refresher := usecase.NewRefresher(usecase.RefresherDeps{
		Source:     a.source,
		Repository: repo,
		Logger:     a.logger.With("component", "refresher"),
	})
	return refresher.Refresh(ctx)
}

// Run refreshes on start-up and on every scheduler tick, and serves the
// stored dates until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	db, repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	refresher := usecase.NewRefresher(usecase.RefresherDeps{
		Source:     a.source,
		Repository: repo,
		Logger:     a.logger.With("component", "refresher"),
	})

	sched := usecase.NewScheduler(scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval), refresher)
	if err := sched.Start(ctx); err != nil {
		return crdb.Wrap(err, "start scheduler")
	}

	api := httpapi.NewServer(repo, refresher, a.logger.With("component", "http"))
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.Addr,
			"strategy", a.cfg.Source.Strategy, "interval", a.cfg.Scheduler.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = crdb.Wrap(err, "http server")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Error("scheduler stop", "error", err)
	}
	return runErr
}

func (a *Application) openRepository(ctx context.Context) (*sql.DB, *storage.SQLRepository, error) {
	db, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	repo := storage.NewSQLRepository(db, a.cfg.Database.Driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.closeDB(db)
		return nil, nil, err
	}
	return db, repo, nil
}

func (a *Application) closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		a.logger.Error("close database", "error", err)
	}
}
