package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/login-approval-service/internal/cache"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

type featureFlagService struct {
	repo     repositories.Repository
	cache    *cache.CacheManager
	defaults map[string]bool
	logger   *slog.Logger
}

// NewFeatureFlagService serves the flags named in defaults. A flag without a
// stored row takes its default value. cm may be nil.
func NewFeatureFlagService(repo repositories.Repository, cm *cache.CacheManager, defaults map[string]bool, logger *slog.Logger) FeatureFlagService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &featureFlagService{
		repo:     repo,
		cache:    cm,
		defaults: defaults,
		logger:   logger,
	}
}

func (s *featureFlagService) IsEnabled(ctx context.Context, key string) (bool, error) {
	def, known := s.defaults[key]
	if !known {
		return false, ErrFeatureFlagNotFound
	}

	var enabled bool
	err := s.cache.Flags.CacheOrExecute(ctx, fmt.Sprintf("key:%s", key), &enabled, cache.FlagCacheConfig.TTL, func() (interface{}, error) {
		flag, err := s.repo.FeatureFlag().Get(ctx, nil, key)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return def, nil
			}
			return nil, err
		}
		return flag.Enabled, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read feature flag %s: %w", key, err)
	}

	return enabled, nil
}

func (s *featureFlagService) List(ctx context.Context) (map[string]bool, error) {
	flags := make(map[string]bool, len(s.defaults))
	for key := range s.defaults {
		enabled, err := s.IsEnabled(ctx, key)
		if err != nil {
			return nil, err
		}
		flags[key] = enabled
	}
	return flags, nil
}

func (s *featureFlagService) Set(ctx context.Context, key string, enabled bool) (*models.FeatureFlag, error) {
	if _, known := s.defaults[key]; !known {
		return nil, ErrFeatureFlagNotFound
	}

	flag, err := s.repo.FeatureFlag().Set(ctx, nil, key, enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to set feature flag %s: %w", key, err)
	}
	cache.InvalidateFlagCache(ctx, s.cache, key)

	s.logger.Info("Feature flag updated", "key", key, "enabled", enabled)
	return flag, nil
}
