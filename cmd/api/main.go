package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if cfg.Postgres.RunSeed {
		if err := persistence.Seed(ctx, pg.PoolHandle(), cfg.Session.BcryptCost, logger); err != nil {
			logger.Fatal("failed to seed database", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	sessions := session.NewStore(redis.Client, cfg.Session.TTL())
	blobs := storage.NewDiskStore(cfg.Storage.UploadDir)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	accountService := service.NewAccountService(service.AccountDependencies{
		Store:      store,
		Sessions:   sessions,
		BcryptCost: cfg.Session.BcryptCost,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	queryService := service.NewQueryService(store)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sessionMiddleware := auth.NewSessionMiddleware(sessions, cfg.Session.CookieName)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:          handlers.NewAccountsHandler(accountService, cfg.Session.CookieName, cfg.Session.TTL()),
		Tickets:           handlers.NewTicketsHandler(ticketService, queryService),
		Dashboards:        handlers.NewDashboardsHandler(queryService),
		AdminUsers:        handlers.NewAdminUsersHandler(accountService),
		SessionMiddleware: sessionMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
