package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-bot/internal/api/http"
	"github.com/spec-kit/support-bot/internal/api/http/handlers"
	"github.com/spec-kit/support-bot/internal/auth"
	"github.com/spec-kit/support-bot/internal/bus"
	"github.com/spec-kit/support-bot/internal/completion"
	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/observability"
	"github.com/spec-kit/support-bot/internal/persistence"
	"github.com/spec-kit/support-bot/internal/repository"
	"github.com/spec-kit/support-bot/internal/service"
	"github.com/spec-kit/support-bot/internal/worker"
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

	auditDB, err := persistence.OpenAuditDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open audit database", zap.Error(err))
	}
	defer auditDB.Close()

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	scheduler := worker.NewTimerScheduler()
	outbound := bus.NewRedisBus(redis.Client, cfg.Redis.OutboundChannel, logger)

	var audit repository.AuditRepository
	if pool := auditDB.Pool(); pool != nil {
		audit = repository.NewAuditRepository(pool)
	}
	service.NewNotificationService(dispatcher, logger, audit, outbound).RegisterHandlers()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(),
		Generator:  completion.NewClient(cfg.Completion, logger, metrics),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	subscriptions := service.NewSubscriptionService(service.SubscriptionDependencies{
		GrantRepo:       repository.NewGrantRepository(),
		Entitlements:    outbound,
		Scheduler:       scheduler,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		ActivationDelay: cfg.Subscription.ActivationDelay(),
		DurationMonths:  cfg.Subscription.DurationMonths,
	})
	desk := service.NewDeskService(service.DeskDependencies{
		Tickets:       tickets,
		Subscriptions: subscriptions,
		Channel:       outbound,
		Identity:      auth.NewStaticDirectory(cfg.Support.StaffIDs, cfg.Support.AdminIDs),
		Scheduler:     scheduler,
		CloseGrace:    cfg.Ticket.CloseGrace(),
		Logger:        logger,
	})

	sweeperDone := worker.StartSubscriptionSweeper(ctx, cfg.Subscription.SweepInterval(), subscriptions, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Tickets:        handlers.NewTicketsHandler(desk, tickets, audit),
		Subscriptions:  handlers.NewSubscriptionsHandler(desk, subscriptions),
		Setup:          handlers.NewSetupHandler(desk),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("support bot started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("version", cfg.App.Version),
		zap.String("outbound_channel", cfg.Redis.OutboundChannel))

	waitForShutdown(logger)

	cancel()
	<-sweeperDone
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
