package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/repositories/memory"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

func TestServiceManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceManagerConfig)
		wantErr bool
	}{
		{"defaults", func(c *ServiceManagerConfig) {}, false},
		{"negative interval", func(c *ServiceManagerConfig) { c.Polling.Interval = -time.Second }, true},
		{"interval above timeout", func(c *ServiceManagerConfig) {
			c.Polling.Interval = time.Minute
			c.Polling.Timeout = time.Second
		}, true},
		{"no flags", func(c *ServiceManagerConfig) { c.FlagDefaults = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServiceManagerConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServiceManager_Lifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm := NewDefaultServiceManager(memory.NewStore(nil), nil, nil, logger, validator.New())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("getter before Initialize should panic")
			}
		}()
		sm.Login()
	}()

	ctx := context.Background()
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("health check before Initialize should fail")
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sm.HealthCheck(ctx); err != nil {
		t.Errorf("health check: %v", err)
	}

	loops := sm.Status().PollingContract()
	if len(loops) != 4 || loops[0].Name != workflow.LoopRequestApproval {
		t.Errorf("unexpected polling contract %+v", loops)
	}

	if err := sm.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("health check after Shutdown should fail")
	}
}
