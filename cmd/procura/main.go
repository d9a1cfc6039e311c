package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	catalogStore := authz.NewStore()
	ruleStore := fileval.NewStore()
	actionRegistry := auditactions.NewRegistry()

	loader := catalog.NewLoader(
		catalog.Sources{
			Catalog:   authz.NewRepository(pool),
			FileRules: fileval.NewRepository(pool),
			Actions:   auditactions.NewRepository(pool),
		},
		catalog.Stores{
			Catalog:   catalogStore,
			FileRules: ruleStore,
			Actions:   actionRegistry,
		},
		logger,
		metrics,
	)

	// Bootstrap is all-or-nothing: without a first snapshot every query
	// would fail, so a broken catalog is fatal here and only here.
	if err := loader.Reload(ctx); err != nil {
		logger.Error("bootstrap catalog", slog.Any("error", err))
		os.Exit(1)
	}

	notifier := catalog.NewNotifier(redisClient, logger)
	go func() {
		if err := notifier.Listen(ctx, loader); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reload listener", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	resolver := authz.NewResolver(catalogStore, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthzHandler:   authz.NewHandler(logger, resolver, catalogStore, metrics),
		UploadHandler:  fileval.NewHandler(logger, fileval.NewResolver(ruleStore, catalogStore), metrics),
		ActionsHandler: auditactions.NewHandler(logger, actionRegistry),
		CatalogHandler: catalog.NewHandler(logger, jobs.NewEnqueuer(asynqClient)),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
