package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheManager(client), mr
}

type flagValue struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	if err := cm.Flags.Set(ctx, "key:google_provider", flagValue{Key: "google_provider", Enabled: true}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("flag:key:google_provider") {
		t.Fatalf("expected prefixed key in redis, got %v", mr.Keys())
	}

	var got flagValue
	if err := cm.Flags.Get(ctx, "key:google_provider", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Enabled || got.Key != "google_provider" {
		t.Errorf("unexpected value %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if err := cm.Flags.Get(ctx, "key:google_provider", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("expected ErrCacheNotFound after ttl, got %v", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	if cm.Enabled() {
		t.Fatal("manager without client should report disabled")
	}
	if err := cm.Flags.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("set without client should degrade silently, got %v", err)
	}
	var v string
	if err := cm.Flags.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
	if err := cm.HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected health check to fail, got %v", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return flagValue{Key: "google_provider", Enabled: false}, nil
	}

	for i := 0; i < 3; i++ {
		var got flagValue
		if err := cm.Flags.CacheOrExecute(ctx, "key:google_provider", &got, time.Minute, fetch); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if got.Key != "google_provider" {
			t.Errorf("iteration %d: unexpected value %+v", i, got)
		}
	}
	if calls != 1 {
		t.Errorf("expected fetch once, got %d", calls)
	}

	boom := errors.New("boom")
	var got flagValue
	err := cm.Flags.CacheOrExecute(ctx, "key:other", &got, time.Minute, func() (interface{}, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestInvalidateHelpers(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	_ = cm.Flags.Set(ctx, "key:google_provider", flagValue{Key: "google_provider"}, time.Minute)
	_ = cm.Flags.Set(ctx, "list", []flagValue{{Key: "google_provider"}}, time.Minute)
	_ = cm.Identity.Set(ctx, "id:u1", "x", time.Minute)
	_ = cm.Identity.Set(ctx, "name:prof", "x", time.Minute)
	_ = cm.Identity.Set(ctx, "list:0:10", "x", time.Minute)
	_ = cm.Identity.Set(ctx, "id:u2", "x", time.Minute)

	InvalidateFlagCache(ctx, cm, "google_provider")
	if mr.Exists("flag:key:google_provider") || mr.Exists("flag:list") {
		t.Errorf("flag keys should be gone, have %v", mr.Keys())
	}

	if !mr.Exists("identity:id:u2") {
		t.Error("identity entries should be untouched by flag invalidation")
	}

	SafeInvalidatePattern(ctx, cm.Identity, "id:*")
	for _, k := range []string{"identity:id:u1", "identity:id:u2"} {
		if mr.Exists(k) {
			t.Errorf("%s should be invalidated", k)
		}
	}
	if !mr.Exists("identity:name:prof") || !mr.Exists("identity:list:0:10") {
		t.Errorf("non-matching keys should survive, have %v", mr.Keys())
	}
}
