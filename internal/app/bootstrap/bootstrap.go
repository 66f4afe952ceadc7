package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	postgresadapter "ballotbox/contexts/governance/ballot-engine/adapters/postgres"
	"ballotbox/contexts/governance/ballot-engine/application/commands"
	workerapp "ballotbox/contexts/governance/ballot-engine/application/workers"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/logger"
	"ballotbox/internal/platform/messaging"
	"ballotbox/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	outboxRelay   workerapp.OutboxRelay
	metricsServer *httpserver.Server
	pollInterval  time.Duration
	logger        *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	base, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := base.With("service", cfg.ServiceName, "process", "api")

	owner, err := entities.ParseAddress(cfg.InitialOwner)
	if err != nil {
		return nil, fmt.Errorf("BALLOT_INITIAL_OWNER: %w", err)
	}

	ballotMetrics := metrics.PromBallotMetrics()
	app := &APIApp{logger: log}

	var module ballotengine.Module
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		log.Warn("POSTGRES_DSN is empty; using in-memory ledger",
			"event", "bootstrap_in_memory_ledger",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		module = ballotengine.NewInMemoryModule(owner, ballotMetrics, log)
	} else {
		pg, repo, err := openLedger(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		app.postgres = pg
		if err := repo.EnsureOwner(ctx, owner); err != nil {
			_ = pg.Close()
			return nil, err
		}
		module = ballotengine.NewModule(ballotengine.Dependencies{
			Ledger:         repo,
			Reader:         repo,
			Clock:          postgresadapter.SystemClock{},
			IDGen:          postgresadapter.UUIDGenerator{},
			Metrics:        ballotMetrics,
			IdempotencyTTL: cfg.IdempotencyTTL,
			Logger:         log,
		})
	}

	if err := handOffOwnership(ctx, module, owner, cfg.OwnerHandoff, log); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.server = httpserver.New(module, ballotMetrics.Handler(), log, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	base, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := base.With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, repo, err := openLedger(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, log)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	pollInterval := cfg.OutboxPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	relayMetrics := metrics.PromBallotMetrics()
	return &WorkerApp{
		postgres:      pg,
		outboxRelay:   newOutboxRelay(cfg, repo, kafka, relayMetrics, log),
		metricsServer: httpserver.NewMetricsServer(relayMetrics.Handler(), log, normalizeAddr(cfg.WorkerMetricsPort)),
		pollInterval:  pollInterval,
		logger:        log,
	}, nil
}

func newOutboxRelay(
	cfg config.Config,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	recorder ports.MetricsRecorder,
	log *slog.Logger,
) workerapp.OutboxRelay {
	return workerapp.OutboxRelay{
		Outbox:      outbox,
		Publisher:   publisher,
		Clock:       postgresadapter.SystemClock{},
		TopicPrefix: cfg.KafkaTopicPrefix,
		BatchSize:   cfg.OutboxBatchSize,
		Metrics:     recorder,
		Logger:      log,
	}
}

func openLedger(ctx context.Context, cfg config.Config, log *slog.Logger) (*db.Postgres, *postgresadapter.Repository, error) {
	pg, err := db.Connect(ctx, cfg.PostgresDSN, log)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, log)
	if cfg.PostgresAutoMigrate {
		if err := repo.AutoMigrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	return pg, repo, nil
}

// handOffOwnership moves ownership from the initial owner to target on first
// start. Once the owner has changed, later starts leave it alone.
func handOffOwnership(
	ctx context.Context,
	module ballotengine.Module,
	initial entities.Address,
	target string,
	log *slog.Logger,
) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}
	current, err := module.Handler.Registry.Owner(ctx)
	if err != nil {
		return err
	}
	if current != initial || strings.EqualFold(current.String(), target) {
		log.Info("ownership handoff skipped",
			"event", "bootstrap_owner_handoff_skipped",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"owner", current.String(),
		)
		return nil
	}
	return module.Handler.Ownership.TransferOwnership(ctx, commands.TransferOwnershipCommand{
		Caller:   initial.String(),
		NewOwner: target,
	})
}

// Run serves until ctx is cancelled and then shuts the server down.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	metricsErr := make(chan error, 1)
	if w.metricsServer != nil {
		go func() {
			metricsErr <- w.metricsServer.Start()
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := w.metricsServer.Shutdown(shutdownCtx); err != nil {
				w.logger.Warn("worker metrics server shutdown failed",
					"event", "bootstrap_worker_metrics_shutdown_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}()
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-metricsErr:
			return err
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
