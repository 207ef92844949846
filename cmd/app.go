package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/login-approval-service/internal/cache"
	"github.com/SAP-F-2025/login-approval-service/internal/config"
	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/handlers"
	"github.com/SAP-F-2025/login-approval-service/internal/migrations"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/memory"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/pkg"
)

// staticReviewer is the identity behind PROFESSOR_TOKEN
const staticReviewer = "professor"

// app holds everything the serve and review commands share
type app struct {
	repoManager repositories.RepositoryManager
	repo        repositories.Repository
	identity    repositories.IdentityRepository
	auth        *handlers.AuthMiddleware
	redisClient *redis.Client
	services    services.ServiceManager
}

func newApp(ctx context.Context, cfg *config.Config, withEvents bool) (*app, error) {
	a := &app{}

	// Initialize Redis (if configured)
	if cfg.RedisURL != "" {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, continuing without cache", "error", err)
		} else {
			a.redisClient = client
		}
	}

	casdoorConfig := casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
	}
	if casdoorConfig.Enabled() {
		a.identity = casdoor.NewIdentityCasdoor(casdoorConfig, a.redisClient)
		a.auth = handlers.NewCasdoorAuthMiddleware(casdoorConfig.NewClient(), a.identity)
		logger.Info("Professor authentication via Casdoor", "endpoint", casdoorConfig.Endpoint)
	} else {
		static := memory.NewStaticIdentity(&models.Identity{
			ID:          staticReviewer,
			Name:        staticReviewer,
			DisplayName: "Professor",
			Role:        models.RoleProfessor,
		})
		a.identity = static
		a.auth = handlers.NewStaticTokenAuthMiddleware(cfg.ProfessorToken, static, staticReviewer)
		if cfg.ProfessorToken == "" {
			logger.Warn("Neither Casdoor nor PROFESSOR_TOKEN configured, professor routes will reject every request")
		}
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, state is lost on restart")
		a.repo = memory.NewStore(a.identity)
	default:
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, cfg, func(m *migrations.Migrator) error { return m.Up(ctx) }); err != nil {
				return nil, err
			}
		}

		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: a.redisClient,
			Identity:    a.identity,
		})
		if err := a.repoManager.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		a.repo = a.repoManager.GetRepository()
	}

	var publisher events.EventPublisher = events.NoopPublisher{}
	if withEvents {
		p, err := events.NewPublisher(events.PublisherConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.EventsTopic}, logger)
		if err != nil {
			return nil, err
		}
		publisher = p
	}

	smConfig := services.DefaultServiceManagerConfig()
	smConfig.Polling = services.PollingConfig{Interval: cfg.PollInterval, Timeout: cfg.PollTimeout}
	smConfig.FlagDefaults[models.FlagGoogleProvider] = cfg.GoogleProviderDefault

	a.services = services.NewServiceManager(a.repo, cache.NewCacheManager(a.redisClient), publisher, logger, validator.New(), smConfig)
	if err := a.services.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return a, nil
}

// Close releases the service manager, the store and Redis in that order
func (a *app) Close(ctx context.Context) {
	if a.services != nil {
		if err := a.services.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown services", "error", err)
		}
	}
	switch {
	case a.repoManager != nil:
		// closes Redis as well
		if err := a.repoManager.Shutdown(ctx); err != nil {
			logger.Error("Failed to close repositories", "error", err)
		}
	case a.redisClient != nil:
		a.redisClient.Close()
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, fn func(*migrations.Migrator) error) error {
	pool, err := pkg.NewPgxPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := migrations.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return fn(migrator)
}
