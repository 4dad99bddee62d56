package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/access"
	kafkaadapter "github.com/spec-kit/grievance-service/internal/adapters/kafka"
	minioadapter "github.com/spec-kit/grievance-service/internal/adapters/minio"
	openaiadapter "github.com/spec-kit/grievance-service/internal/adapters/openai"
	"github.com/spec-kit/grievance-service/internal/adapters/stub"
	twilioadapter "github.com/spec-kit/grievance-service/internal/adapters/twilio"
	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/locking"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/sweeper"
	"github.com/spec-kit/grievance-service/internal/ticketcode"
	"github.com/spec-kit/grievance-service/internal/wards"
	"github.com/spec-kit/grievance-service/internal/worker"
)

const evidenceBodyLimit = 12 << 20

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()
	departments := domain.DefaultDepartments()

	directory, err := loadWards(cfg.Wards)
	if err != nil {
		return err
	}
	logger.Info("ward directory loaded", zap.String("version", directory.Version()), zap.Int("zones", len(directory.Zones())))

	health := map[string]handlers.Pinger{}

	var (
		ticketRepo  repository.TicketRepository
		auditRepo   repository.AuditRepository
		officerRepo repository.OfficerRepository
	)
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				return err
			}
		}
		pool := pg.PoolHandle()
		if departments, err = loadDepartments(ctx, repository.NewDepartmentRepository(pool), departments); err != nil {
			return err
		}
		ticketRepo = repository.NewTicketRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
		officerRepo = repository.NewOfficerRepository(pool)
		health["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not set; using the in-memory store")
		memory := repository.NewMemoryTickets()
		ticketRepo, auditRepo = memory, memory
		officerRepo = repository.NewMemoryOfficers()
	}

	var (
		locker  locking.Locker
		limiter ratelimit.Limiter
		codes   ticketcode.Generator
	)
	if rdb := persistence.NewRedis(ctx, cfg.Redis, logger); rdb != nil {
		defer rdb.Close()
		locker = locking.NewRedisLocker(rdb.Client, cfg.Redis.LockTTL)
		limiter = ratelimit.NewRedisLimiter(rdb.Client)
		codes = ticketcode.NewRedisGenerator(rdb.Client, cfg.App.TicketCodePrefix)
		health["redis"] = rdb
	} else {
		locker = locking.NewLocalLocker()
		limiter = ratelimit.NewLocalLimiter(nil)
		codes = ticketcode.NewLocalGenerator(cfg.App.TicketCodePrefix)
	}

	var evidence service.EvidenceStore = stub.NewMemoryEvidence()
	if cfg.Storage.Provider == "minio" {
		store, err := minioadapter.NewEvidenceStore(ctx, cfg.Storage, logger)
		if err != nil {
			return err
		}
		evidence = store
	}

	var (
		classifier service.Classifier    = stub.NewKeywordClassifier(departments)
		verifier   service.PhotoVerifier = stub.PhotoVerifier{}
	)
	if cfg.Classifier.Provider == "openai" {
		client, err := openaiadapter.NewClient(cfg.Classifier, departments, evidence)
		if err != nil {
			return err
		}
		classifier, verifier = client, client
	}

	var citizenNotifier service.Notifier = stub.NewLogNotifier(logger.Named("citizen-notify"))
	if cfg.Notification.CitizenProvider == "twilio" {
		n, err := twilioadapter.NewCitizenNotifier(cfg.Notification)
		if err != nil {
			return err
		}
		citizenNotifier = n
	}
	var officerNotifier service.Notifier = stub.NewLogNotifier(logger.Named("officer-notify"))
	if cfg.Notification.OfficerProvider == "kafka" {
		n, err := kafkaadapter.NewOfficerNotifier(cfg.Notification.KafkaBrokers, cfg.Notification.KafkaTopic)
		if err != nil {
			return err
		}
		defer n.Close() //nolint:errcheck
		officerNotifier = n
	}

	resolver := access.NewResolver(access.DefaultTable(), directory)
	logger.Info("access table loaded", zap.String("version", resolver.Table().Version()), zap.Int("departments", departments.Len()))
	machineCfg := lifecycle.DefaultConfig()
	machineCfg.VerificationWindow = cfg.Lifecycle.VerificationWindow
	machineCfg.LowRatingWindow = cfg.Lifecycle.LowRatingWindow
	machineCfg.NoActionGrace = cfg.Lifecycle.NoActionGrace
	machine := lifecycle.NewMachine(machineCfg, departments, resolver)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:      dispatcher,
		OfficerNotifier: officerNotifier,
		CitizenNotifier: citizenNotifier,
		Logger:          logger,
	})
	notifications.RegisterHandlers()

	policy := service.DefaultClassificationPolicy()
	policy.MaxAttempts = cfg.Classifier.MaxAttempts
	policy.AttemptTimeout = cfg.Classifier.AttemptTimeout
	policy.RetryBackoff = cfg.Classifier.RetryBackoff
	policy.DefaultDepartment = cfg.Classifier.DefaultDepartment

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		AuditRepo:   auditRepo,
		Assignments: service.NewAssignmentService(officerRepo),
		Machine:     machine,
		Access:      resolver,
		Wards:       directory,
		Codes:       codes,
		Locker:      locker,
		Limiter:     limiter,
		Classifier:  classifier,
		Verifier:    verifier,
		Evidence:    evidence,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Policy:      policy,
		FlagWindow:  cfg.Auth.FlagLimitWindow,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, officerRepo, tokens, logger)
	if err := authService.BootstrapSuperAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPass); err != nil {
		return err
	}
	officerService := service.NewOfficerService(service.OfficerDependencies{
		OfficerRepo: officerRepo,
		Wards:       directory,
		Departments: departments,
		BcryptCost:  cfg.Auth.BcryptCost,
	})

	sw := sweeper.New(sweeper.Dependencies{
		Machine:     machine,
		Tickets:     ticketService,
		Officers:    ticketService,
		Logger:      logger.Named("sweeper"),
		Metrics:     metrics,
		Concurrency: cfg.Sweeper.Concurrency,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             evidenceBodyLimit,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, health),
		Complaints:     handlers.NewComplaintsHandler(ticketService),
		Officers:       handlers.NewOfficerHandler(authService, officerService),
		OfficerTickets: handlers.NewOfficerTicketsHandler(ticketService),
		Admin:          handlers.NewAdminHandler(sw, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, officerRepo),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error {
		return worker.RunNotificationWorker(gctx, notifications)
	})
	if cfg.Sweeper.Enabled {
		sweepWorker := worker.NewSweepWorker(sw, cfg.Sweeper.RescoreInterval, cfg.Sweeper.EscalationInterval, nil, logger.Named("sweeper"))
		g.Go(func() error {
			return sweepWorker.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadDepartments seeds missing rows and returns the stored table, which may
// carry operator-tuned SLA days.
func loadDepartments(ctx context.Context, repo repository.DepartmentRepository, seed domain.DepartmentTable) (domain.DepartmentTable, error) {
	if err := repo.Seed(ctx, seed); err != nil {
		return seed, fmt.Errorf("seed departments: %w", err)
	}
	rows, err := repo.List(ctx)
	if err != nil {
		return seed, fmt.Errorf("load departments: %w", err)
	}
	if len(rows) == 0 {
		return seed, nil
	}
	return domain.NewDepartmentTable(rows), nil
}

func loadWards(cfg config.WardsConfig) (*wards.Directory, error) {
	if cfg.Path != "" {
		return wards.Load(cfg.Path)
	}
	return wards.Default()
}
