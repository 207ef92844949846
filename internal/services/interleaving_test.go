package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
)

// interleavingRepo runs hook once, right before the first guarded decision
// write reaches the store. It models a student request landing between the
// professor's read and write.
type interleavingRepo struct {
	repositories.Repository
	hook  func()
	fired bool
}

func (r *interleavingRepo) LoginRequest() repositories.LoginRequestRepository {
	return &interleavingRequests{LoginRequestRepository: r.Repository.LoginRequest(), repo: r}
}

type interleavingRequests struct {
	repositories.LoginRequestRepository
	repo *interleavingRepo
}

func (r *interleavingRequests) ApplyDecision(ctx context.Context, tx *gorm.DB, id uint, from models.RequestStatus, update repositories.RequestUpdate) (bool, error) {
	if !r.repo.fired {
		r.repo.fired = true
		r.repo.hook()
	}
	return r.LoginRequestRepository.ApplyDecision(ctx, tx, id, from, update)
}

func newInterleavedReviewer(t *testing.T, f *fixture, hook func()) ServiceManager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm := NewDefaultServiceManager(&interleavingRepo{Repository: f.store, hook: hook}, nil, nil, logger, validator.New())
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return sm
}

func TestDecisionKeepsCodeSubmittedConcurrently(t *testing.T) {
	const studentCode = "123456"

	tests := []struct {
		name        string
		decide      func(sm ServiceManager, id uint) error
		wantStatus  models.RequestStatus
		wantCode    models.CodeStatus
		wantGranted bool
	}{
		{
			name: "approve",
			decide: func(sm ServiceManager, id uint) error {
				_, err := sm.Review().Approve(context.Background(), &models.ApproveRequest{RequestID: id, Username: "alice"})
				return err
			},
			wantStatus:  models.RequestApproved,
			wantCode:    models.CodeApproved,
			wantGranted: true,
		},
		{
			name: "reject",
			decide: func(sm ServiceManager, id uint) error {
				_, err := sm.Review().Reject(context.Background(), &models.RejectRequest{RequestID: id, Username: "alice"})
				return err
			},
			wantStatus: models.RequestRejected,
			wantCode:   models.CodeRejected,
		},
		{
			name: "approve code",
			decide: func(sm ServiceManager, id uint) error {
				_, err := sm.Review().ApproveCode(context.Background(), &models.CodeDecisionRequest{Username: "alice", Code: "999999"})
				return err
			},
			wantStatus:  models.RequestApproved,
			wantCode:    models.CodePending,
			wantGranted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.login(t, "alice", models.ProviderApple)

			reviewer := newInterleavedReviewer(t, f, func() {
				if _, err := f.sm.Login().SubmitVerificationCode(f.ctx, &models.CodeSubmission{Username: "alice", VerificationCode: studentCode}); err != nil {
					t.Errorf("submit code: %v", err)
				}
			})

			if err := tt.decide(reviewer, id); err != nil {
				t.Fatalf("decide: %v", err)
			}

			view, err := f.sm.Status().RequestStatus(f.ctx, "alice")
			if err != nil {
				t.Fatal(err)
			}
			if view.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", view.Status, tt.wantStatus)
			}
			if view.VerificationCode == nil || *view.VerificationCode != studentCode {
				t.Errorf("request code = %v, want %s", view.VerificationCode, studentCode)
			}

			code, err := f.sm.Status().CodeStatus(f.ctx, "alice", studentCode)
			if err != nil {
				t.Fatal(err)
			}
			if code.Status != string(tt.wantCode) {
				t.Errorf("code status = %s, want %s", code.Status, tt.wantCode)
			}

			if got := f.granted(t, "alice"); got != tt.wantGranted {
				t.Errorf("granted = %v, want %v", got, tt.wantGranted)
			}
		})
	}
}
