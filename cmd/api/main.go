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

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

type repositories struct {
	tickets       repository.TicketRepository
	users         repository.UserRepository
	companies     repository.CompanyRepository
	notifications repository.NotificationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger,
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pg *persistence.Postgres
	repos := repositories{}
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		pool := pg.PoolHandle()
		repos = repositories{
			tickets:       repository.NewTicketRepository(pool),
			users:         repository.NewUserRepository(pool),
			companies:     repository.NewCompanyRepository(pool),
			notifications: repository.NewNotificationRepository(pool),
		}
	default:
		logger.Warn("using in-memory store; records are lost on restart")
		store := memory.NewStore()
		repos = repositories{
			tickets:       store.Tickets(),
			users:         store.Users(),
			companies:     store.Companies(),
			notifications: store.Notifications(),
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var ids idalloc.Allocator
	switch cfg.Store.CounterBackend {
	case config.BackendPostgres:
		ids = idalloc.NewPostgresAllocator(pg.PoolHandle())
	case config.BackendRedis:
		ids = idalloc.NewRedisAllocator(redis.Client, redis.Prefix)
	default:
		ids = idalloc.NewMemoryAllocator()
	}
	logger.Info("storage selected",
		zap.String("store", cfg.Store.Backend),
		zap.String("counters", cfg.Store.CounterBackend),
	)

	engine, err := policy.NewEngine()
	if err != nil {
		logger.Fatal("failed to load access policy", zap.Error(err))
	}
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    repos.users,
		CompanyRepo: repos.companies,
		Allocator:   ids,
		Logger:      logger,
	})
	userService := service.NewUserService(cfg.Auth, service.UserDependencies{
		UserRepo:    repos.users,
		CompanyRepo: repos.companies,
		Allocator:   ids,
		Policy:      engine,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.tickets,
		UserRepo:   repos.users,
		Allocator:  ids,
		Policy:     engine,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	companyService := service.NewCompanyService(repos.companies, engine, dispatcher, logger)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repos.notifications,
		UserRepo:         repos.users,
		Policy:           engine,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	worker.StartNotificationWorker(notificationService, logger)

	if err := authService.BootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Companies:      handlers.NewCompaniesHandler(companyService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
