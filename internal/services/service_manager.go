package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/cache"
	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Polling PollingConfig

	// FlagDefaults names every known feature flag and its value when unset
	FlagDefaults map[string]bool

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	loginService       LoginService
	statusService      StatusService
	accessService      AccessService
	reviewService      ReviewService
	userService        UserService
	featureFlagService FeatureFlagService
	exportService      ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies.
// cm and publisher may be nil.
func NewServiceManager(repo repositories.Repository, cm *cache.CacheManager, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &serviceManager{
		repo:      repo,
		cache:     cm,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// DefaultServiceManagerConfig is the configuration used when nothing is overridden
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		Polling: PollingConfig{
			Interval: workflow.DefaultPollInterval,
			Timeout:  workflow.DefaultPollTimeout,
		},
		FlagDefaults: map[string]bool{
			models.FlagGoogleProvider: true,
		},
		DefaultTimeout: 30 * time.Second,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, cm *cache.CacheManager, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	return NewServiceManager(repo, cm, publisher, logger, validator, DefaultServiceManagerConfig())
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	sm.initializeServices()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	sm.featureFlagService = NewFeatureFlagService(sm.repo, sm.cache, sm.config.FlagDefaults, sm.logger)
	sm.accessService = NewAccessService(sm.repo, sm.publisher, sm.logger)
	sm.loginService = NewLoginService(sm.repo, sm.featureFlagService, sm.publisher, sm.logger, sm.validator)
	sm.statusService = NewStatusService(sm.repo, sm.config.Polling, sm.logger, sm.validator)
	sm.reviewService = NewReviewService(sm.repo, sm.accessService, sm.publisher, sm.logger, sm.validator)
	sm.userService = NewUserService(sm.repo, sm.publisher, sm.logger, sm.validator)
	sm.exportService = NewExportService(sm.repo, sm.logger)
}

// Service getters
func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Login() LoginService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.loginService
}

func (sm *serviceManager) Status() StatusService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.statusService
}

func (sm *serviceManager) Access() AccessService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.accessService
}

func (sm *serviceManager) Review() ReviewService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.reviewService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) FeatureFlag() FeatureFlagService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.featureFlagService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown closes the event publisher. The repository is owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DefaultTimeout < 0 {
		errors = append(errors, "default timeout cannot be negative")
	}
	if config.Polling.Interval < 0 || config.Polling.Timeout < 0 {
		errors = append(errors, "polling interval and timeout cannot be negative")
	}
	if config.Polling.Timeout > 0 && config.Polling.Interval > config.Polling.Timeout {
		errors = append(errors, "polling interval cannot exceed the timeout")
	}
	if len(config.FlagDefaults) == 0 {
		errors = append(errors, "at least one feature flag must be declared")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
