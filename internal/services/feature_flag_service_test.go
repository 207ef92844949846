package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/login-approval-service/internal/cache"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/memory"
)

func TestFeatureFlagService_CachedReads(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := memory.NewStore(nil)
	svc := NewFeatureFlagService(store, cache.NewCacheManager(client), map[string]bool{
		models.FlagGoogleProvider: true,
	}, logger)

	enabled, err := svc.IsEnabled(ctx, models.FlagGoogleProvider)
	if err != nil || !enabled {
		t.Fatalf("default should be enabled, got %v %v", enabled, err)
	}
	if !mr.Exists("flag:key:" + models.FlagGoogleProvider) {
		t.Error("flag value should be cached")
	}

	// A write behind the service's back is hidden by the cache
	_, _ = store.FeatureFlag().Set(ctx, nil, models.FlagGoogleProvider, false)
	enabled, _ = svc.IsEnabled(ctx, models.FlagGoogleProvider)
	if !enabled {
		t.Error("expected cached value")
	}

	// Writes through the service invalidate
	if _, err := svc.Set(ctx, models.FlagGoogleProvider, false); err != nil {
		t.Fatal(err)
	}
	enabled, _ = svc.IsEnabled(ctx, models.FlagGoogleProvider)
	if enabled {
		t.Error("expected fresh value after Set")
	}

	flags, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := flags[models.FlagGoogleProvider]; !ok || v {
		t.Errorf("unexpected flags %v", flags)
	}
}

func TestFeatureFlagService_UnknownKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewFeatureFlagService(memory.NewStore(nil), nil, map[string]bool{models.FlagGoogleProvider: false}, logger)

	if _, err := svc.IsEnabled(ctx, "dark_mode"); !errors.Is(err, ErrFeatureFlagNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.Set(ctx, "dark_mode", true); !errors.Is(err, ErrFeatureFlagNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	enabled, err := svc.IsEnabled(ctx, models.FlagGoogleProvider)
	if err != nil || enabled {
		t.Errorf("uncached default should be false, got %v %v", enabled, err)
	}
}
