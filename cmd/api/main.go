package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/itops/helpdesk-service/internal/api/http"
	"github.com/itops/helpdesk-service/internal/api/http/handlers"
	"github.com/itops/helpdesk-service/internal/auth"
	"github.com/itops/helpdesk-service/internal/config"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/observability"
	"github.com/itops/helpdesk-service/internal/persistence"
	"github.com/itops/helpdesk-service/internal/policy"
	"github.com/itops/helpdesk-service/internal/repository"
	"github.com/itops/helpdesk-service/internal/service"
	"github.com/itops/helpdesk-service/internal/worker"
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
	commentRepo := repository.NewCommentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	slaPolicy, err := policy.NewSLAPolicy(cfg.SLA.Offsets())
	if err != nil {
		logger.Fatal("invalid SLA configuration", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditLog := service.NewAuditLog(activityRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		Audit:       auditLog,
		SLA:         slaPolicy,
		Dispatcher:  dispatcher,
	})
	commentService := service.NewCommentService(commentRepo, ticketRepo, dispatcher)
	authService := service.NewAuthService(cfg.Auth, userRepo)
	statsService := service.NewStatsService(ticketRepo, redis.ClientHandle(), logger)
	statsService.RegisterInvalidation(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authMiddleware := auth.NewMiddleware(authService.TokenManager())
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, statsService),
		AuthMiddleware: authMiddleware,
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
