package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/apex"
	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/fusion"
	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/fusion-sync/internal/adapters/driven/redis"
	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/sqlite"
	httpserver "github.com/custodia-labs/fusion-sync/internal/adapters/driving/http"
	"github.com/custodia-labs/fusion-sync/internal/config"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driving"
	"github.com/custodia-labs/fusion-sync/internal/core/services"
	"github.com/custodia-labs/fusion-sync/internal/transform"
)

// errNoHistory is returned when neither Postgres nor SQLite is configured.
var errNoHistory = errors.New("no run history store configured (set database.url or database.sqlite_path)")

// history is the run-history backend plus its health check and closer.
type history struct {
	store driven.SyncRunStore
	ping  httpserver.Pinger
	pg    *postgres.DB
	close func() error
}

// app holds the wired adapters and services for one command invocation.
type app struct {
	cfg     *config.Config
	source  *fusion.Client
	service driving.SyncService
	history *history
	lock    driven.DistributedLock
	checks  map[string]httpserver.Pinger
	closers []func() error
}

// openHistory opens Postgres when database.url is set, otherwise SQLite.
func openHistory(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*history, error) {
	if cfg.URL != "" {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres run history")
		return &history{store: postgres.NewSyncRunStore(db), ping: db, pg: db, close: db.Close}, nil
	}

	if cfg.SQLitePath != "" {
		st, err := sqlite.New(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite run history", "path", cfg.SQLitePath)
		return &history{store: st, ping: st, close: st.Close}, nil
	}

	return nil, errNoHistory
}

// newApp validates the config and wires source, destination, history,
// lock and services.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		checks: make(map[string]httpserver.Pinger),
	}

	a.source = fusion.NewClient(fusion.Config{
		Credentials: cfg.Source.Credentials,
		Endpoints:   cfg.Source.Endpoints,
		Timeout:     cfg.Source.Timeout,
		Logger:      logger.With("component", "fusion"),
	})
	destination := apex.NewClient(apex.Config{
		Destination: cfg.Destination.API,
		Timeout:     cfg.Destination.Timeout,
		Logger:      logger.With("component", "apex"),
	})

	h, err := openHistory(ctx, cfg.Database, logger)
	switch {
	case errors.Is(err, errNoHistory):
		logger.Warn("run history disabled; runs are kept in memory only")
	case err != nil:
		return nil, err
	default:
		a.history = h
		a.closers = append(a.closers, h.close)
		a.checks["database"] = h.ping
	}

	if err := a.setupLock(ctx, logger); err != nil {
		a.Close()
		return nil, err
	}

	var runStore driven.SyncRunStore
	if a.history != nil {
		runStore = a.history.store
	}

	orchestrator := services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
		Source:      a.source,
		Destination: destination,
		Mapper:      transform.New(nil),
		RunStore:    runStore,
		Lock:        a.lock,
		LockTTL:     cfg.Sync.LockTTL,
		PageSize:    cfg.Sync.PageSize,
		Logger:      logger.With("component", "orchestrator"),
	})

	a.service = services.NewSyncService(services.SyncServiceConfig{
		Orchestrator: orchestrator,
		Source:       a.source,
		RunStore:     runStore,
		Logger:       logger,
	})

	return a, nil
}

// setupLock prefers Redis, falls back to Postgres advisory locks and
// otherwise relies on the in-process single-run guard.
func (a *app) setupLock(ctx context.Context, logger *slog.Logger) error {
	if a.cfg.Redis.URL != "" {
		client, err := redisadapter.Connect(ctx, a.cfg.Redis.URL)
		if err != nil {
			return err
		}
		lock := redisadapter.NewLock(client)
		a.lock = lock
		a.checks["redis"] = lock
		a.closers = append(a.closers, client.Close)
		logger.Info("using redis run lock", "instance", lock.InstanceID())
		return nil
	}

	if a.history != nil && a.history.pg != nil {
		a.lock = postgres.NewAdvisoryLock(a.history.pg)
		logger.Info("using postgres advisory run lock")
	}
	return nil
}

// Wait blocks until background runs started through the service finish.
func (a *app) Wait() {
	if w, ok := a.service.(interface{ Wait() }); ok {
		w.Wait()
	}
}

// Close releases adapters in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
