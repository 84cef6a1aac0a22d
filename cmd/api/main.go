package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-routing/internal/api/http"
	"github.com/spec-kit/helpdesk-routing/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-routing/internal/config"
	"github.com/spec-kit/helpdesk-routing/internal/events"
	"github.com/spec-kit/helpdesk-routing/internal/observability"
	"github.com/spec-kit/helpdesk-routing/internal/persistence"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	"github.com/spec-kit/helpdesk-routing/internal/service"
	"github.com/spec-kit/helpdesk-routing/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	ruleRepo := repository.NewSLARuleRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	ticketLock := persistence.NewTicketLock(redis, cfg.SLA.LockTTL())

	ruleService := service.NewRuleService(ruleRepo, metrics, logger)
	if err := ruleService.Seed(ctx); err != nil {
		logger.Warn("failed to seed SLA rules", zap.Error(err))
	}

	agentService := service.NewAgentService(agentRepo, logger)
	routerService := service.NewRouterService(service.RouterDependencies{
		TicketRepo:          ticketRepo,
		AgentRepo:           agentRepo,
		AssignmentRepo:      assignmentRepo,
		TimelineRepo:        timelineRepo,
		NotificationRepo:    notificationRepo,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              logger,
		ReleaseOnEscalation: cfg.SLA.ReleaseOnEscalation,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:       ticketRepo,
		NotificationRepo: notificationRepo,
		TimelineRepo:     timelineRepo,
		Rules:            ruleService,
		Router:           routerService,
		Locker:           ticketLock,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		WarningWindow:    cfg.SLA.WarningWindow(),
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		TimelineRepo:     timelineRepo,
		NotificationRepo: notificationRepo,
		Rules:            ruleService,
		Router:           routerService,
		Agents:           agentService,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)
	sweeper := worker.NewSLASweeper(slaService, cfg.SLA.SweepInterval(), logger)
	sweeper.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(),
		Tickets:       handlers.NewTicketsHandler(ticketService, slaService),
		Agents:        handlers.NewAgentsHandler(agentService),
		SLA:           handlers.NewSLAHandler(ruleService, slaService),
		Notifications: handlers.NewNotificationsHandler(notificationService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
