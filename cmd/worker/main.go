package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/procura-io/procura/internal/app"
	"github.com/procura-io/procura/internal/auditactions"
	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/catalog"
	"github.com/procura-io/procura/internal/fileval"
	"github.com/procura-io/procura/internal/observability"
	"github.com/procura-io/procura/internal/platform/cache"
	"github.com/procura-io/procura/internal/platform/db"
	"github.com/procura-io/procura/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, ConnectTimeout: cfg.PGConnTimeout})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisTimeout)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	loader := catalog.NewLoader(
		catalog.Sources{
			Catalog:   authz.NewRepository(pool),
			FileRules: fileval.NewRepository(pool),
			Actions:   auditactions.NewRepository(pool),
		},
		catalog.Stores{
			Catalog:   authz.NewStore(),
			FileRules: fileval.NewStore(),
			Actions:   auditactions.NewRegistry(),
		},
		logger,
		metrics,
	)

	notifier := catalog.NewNotifier(redisClient, logger)

	cronTask, err := jobs.NewCatalogReloadTask(jobs.CatalogReloadPayload{Reason: "scheduled re-sync"})
	if err != nil {
		logger.Error("build cron task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogReload, Handler: jobs.NewCatalogReloadHandler(loader, notifier)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReloadCron, Task: cronTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("cron", cfg.ReloadCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
