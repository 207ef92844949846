package gateclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/handlers"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/memory"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

func fastLoop(name string, timeout time.Duration) workflow.PollLoop {
	for _, loop := range workflow.PollingContract(5*time.Millisecond, timeout) {
		if loop.Name == name {
			return loop
		}
	}
	panic("unknown loop " + name)
}

func TestPoll_TransientErrorsKeepPolling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusNotFound)
		case 2:
			w.WriteHeader(http.StatusInternalServerError)
		case 3:
			w.Write([]byte(`{"request":{"id":1,"status":"pending"}}`))
		default:
			w.Write([]byte(`{"request":{"id":1,"status":"approved","authProvider":"apple"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPolling(5*time.Millisecond, time.Second))
	view, err := c.WaitForRequestDecision(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != models.RequestApproved {
		t.Errorf("status = %s", view.Status)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
}

func TestPoll_TimeoutIsDistinctFromRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"status":"not_found","used":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.poll(context.Background(), fastLoop(workflow.LoopCodeValidation, 30*time.Millisecond), func(ctx context.Context) (string, error) {
		view, err := c.CodeStatus(ctx, "alice", "123456")
		if err != nil {
			return "", err
		}
		return view.Status, nil
	})
	if !errors.Is(err, ErrPollTimedOut) {
		t.Fatalf("err = %v, want ErrPollTimedOut", err)
	}
}

func TestPoll_CallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPolling(5*time.Millisecond, time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.WaitForFinalVerification(ctx, "bob")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
	if errors.Is(err, ErrPollTimedOut) {
		t.Error("caller cancellation must not look like a poll timeout")
	}
}

func TestPoll_PermanentClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Validation failed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPolling(5*time.Millisecond, time.Second))
	err := c.WaitForAccess(context.Background(), " ")
	if !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("err = %v, want 400 APIError", err)
	}
}

func TestIsTerminalValues(t *testing.T) {
	access := fastLoop(workflow.LoopAccessGrant, time.Second)
	if workflow.IsTerminal(access, "false") || !workflow.IsTerminal(access, "true") {
		t.Error("access loop ends only on true")
	}
	final := fastLoop(workflow.LoopFinalVerification, time.Second)
	if workflow.IsTerminal(final, models.PollStatusNotFound) {
		t.Error("not_found is never terminal")
	}
}

// newLiveServer runs the real router over an in-memory store
func newLiveServer(t *testing.T) (*httptest.Server, services.ServiceManager, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)

	identity := memory.NewStaticIdentity(&models.Identity{ID: "p-1", Name: "professor", Role: models.RoleProfessor})
	store := memory.NewStore(identity)
	sm := services.NewDefaultServiceManager(store, nil, nil, slogger, validator.New())
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, nil)
	handlers.NewHandlerManager(sm, identity, handlers.NewStaticTokenAuthMiddleware("tok", identity, "professor"), logger).SetupRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, sm, store
}

// professor approves the user's pending request, once its code is attached
// when needCode is set, then the final verification when final is set.
func professor(ctx context.Context, t *testing.T, sm services.ServiceManager, username string, final, needCode bool) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	approved := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !approved {
			pending, err := sm.Review().ListPending(ctx)
			if err != nil || len(pending) == 0 {
				continue
			}
			req := pending[0]
			if req.Username != username || (needCode && req.Code == nil) {
				continue
			}
			if _, err := sm.Review().Approve(ctx, &models.ApproveRequest{RequestID: req.ID, Username: req.Username}); err != nil {
				t.Errorf("approve: %v", err)
				return
			}
			approved = true
			if !final {
				return
			}
			continue
		}

		res, err := sm.Review().ApproveFinal(ctx, &models.UsernameRequest{Username: username})
		if err == nil && res.Updated > 0 {
			return
		}
	}
}

func TestRunLogin_EndToEnd(t *testing.T) {
	tests := []struct {
		name     string
		username string
		provider models.AuthProvider
		code     string
	}{
		{"apple with code", "alice", models.ProviderApple, "042042"},
		{"google with final verification", "bob", models.ProviderGoogle, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, sm, _ := newLiveServer(t)
			c := NewClient(srv.URL, WithPolling(5*time.Millisecond, 5*time.Second))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			go professor(ctx, t, sm, tt.username, tt.provider == models.ProviderGoogle, tt.code != "")

			var stages []string
			err := c.RunLogin(ctx, &LoginFlow{
				Username: tt.username,
				Password: "pw",
				Provider: tt.provider,
				Code:     tt.code,
				OnStep:   func(s Step) { stages = append(stages, s.Stage+":"+s.Status) },
			})
			if err != nil {
				t.Fatalf("RunLogin: %v (stages %v)", err, stages)
			}
			if last := stages[len(stages)-1]; last != workflow.LoopAccessGrant+":true" {
				t.Errorf("last stage = %s", last)
			}

			if err := c.SyncPolling(ctx); err != nil {
				t.Fatal(err)
			}
			if c.Loop(workflow.LoopCodeValidation).Timeout != workflow.DefaultPollTimeout {
				t.Errorf("synced timeout = %v", c.Loop(workflow.LoopCodeValidation).Timeout)
			}
		})
	}
}

func TestRunLogin_Rejected(t *testing.T) {
	srv, sm, _ := newLiveServer(t)
	c := NewClient(srv.URL, WithPolling(5*time.Millisecond, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for ctx.Err() == nil {
			pending, _ := sm.Review().ListPending(ctx)
			if len(pending) > 0 {
				sm.Review().Reject(ctx, &models.RejectRequest{RequestID: pending[0].ID, Username: pending[0].Username})
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	err := c.RunLogin(ctx, &LoginFlow{Username: "carol", Password: "pw", Provider: models.ProviderApple})
	if !errors.Is(err, ErrRequestRejected) {
		t.Fatalf("err = %v, want ErrRequestRejected", err)
	}
}
