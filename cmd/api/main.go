package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-activity/internal/api/http"
	"github.com/spec-kit/ticket-activity/internal/api/http/handlers"
	"github.com/spec-kit/ticket-activity/internal/auth"
	"github.com/spec-kit/ticket-activity/internal/config"
	"github.com/spec-kit/ticket-activity/internal/events"
	"github.com/spec-kit/ticket-activity/internal/observability"
	"github.com/spec-kit/ticket-activity/internal/platform"
	"github.com/spec-kit/ticket-activity/internal/registry"
	"github.com/spec-kit/ticket-activity/internal/scheduler"
	"github.com/spec-kit/ticket-activity/internal/service"
	"github.com/spec-kit/ticket-activity/internal/store"
	"github.com/spec-kit/ticket-activity/internal/tracker"
	"github.com/spec-kit/ticket-activity/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		st     store.Store
		pinger handlers.Pinger
	)
	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		st, pinger = pg, pg
	default:
		fs, err := store.NewFileStore(cfg.Storage, logger)
		if err != nil {
			logger.Fatal("failed to open data directory", zap.Error(err))
		}
		st, pinger = fs, fs
	}

	identities, err := registry.Load(ctx, st, logger)
	if err != nil {
		logger.Fatal("failed to load tracking config", zap.Error(err))
	}

	ledger, err := tracker.Load(ctx, identities, st, logger)
	if err != nil {
		logger.Fatal("failed to load activity state", zap.Error(err))
	}

	var client platform.Client
	if cfg.Platform.BaseURL != "" {
		client = platform.NewRESTClient(cfg.Platform, logger)
	} else {
		logger.Warn("no platform gateway configured; liveness checks and reports are disabled")
		client = platform.NewNoopClient(logger)
	}

	names := platform.NewNameResolver(cfg.Redis, client, logger)
	defer names.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartDiagnosticsWorker(dispatcher, logger)

	clock := scheduler.NewClock()
	classifier := tracker.NewClassifier(identities, ledger)

	trackerService := service.NewTrackerService(service.Dependencies{
		Identities: identities,
		Ledger:     ledger,
		Classifier: classifier,
		Platform:   client,
		Names:      names,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
		Metrics:    metrics,
		WipeWindow: cfg.Scheduler.WipeConfirmWindow,
	})

	resetTask := scheduler.NewWindowResetTask(ledger, clock, cfg.Scheduler.TickInterval, logger, metrics)
	go resetTask.Run(ctx)

	reportTask := scheduler.NewReportTask(trackerService, clock, cfg.Scheduler.TickInterval, logger)
	go reportTask.Run(ctx)

	go scheduler.Periodic(ctx, clock, "reconcile", cfg.Scheduler.ReconcileInterval, logger, func(ctx context.Context) error {
		pruned, err := trackerService.ForceReconcile(ctx)
		if err != nil {
			return err
		}
		if pruned > 0 {
			logger.Info("reconciled dead channels", zap.Int("pruned", pruned))
		}
		return nil
	})

	go scheduler.Periodic(ctx, clock, "source-self-heal", cfg.Scheduler.SourcesInterval, logger, func(ctx context.Context) error {
		restored, err := identities.EnsureKnownSources(ctx)
		if err != nil {
			return err
		}
		if restored > 0 {
			logger.Info("restored known source ids", zap.Int("restored", restored))
		}
		return nil
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pinger, names),
		Activity:       handlers.NewActivityHandler(trackerService),
		Admin:          handlers.NewAdminHandler(trackerService, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
	if err := ledger.FlushDirty(context.Background()); err != nil {
		logger.Error("final flush failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
