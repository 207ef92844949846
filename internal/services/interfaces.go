package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

// ===== STUDENT SIDE =====

type LoginService interface {
	SubmitLogin(ctx context.Context, req *models.LoginSubmission, client models.ClientInfo) (*models.LoginResult, error)
	SubmitVerificationCode(ctx context.Context, req *models.CodeSubmission) (*models.CodeSubmissionResult, error)
	RequestFinalVerification(ctx context.Context, req *models.FinalVerificationSubmission) (*models.ActionResult, error)
}

// StatusService answers the student polling loops. Every method is a
// single read and never writes.
type StatusService interface {
	RequestStatus(ctx context.Context, username string) (*models.RequestStatusView, error)
	CodeStatus(ctx context.Context, username, code string) (*models.CodeStatusView, error)
	FinalStatus(ctx context.Context, username string) (*models.FinalStatusView, error)
	PollingContract() []workflow.PollLoop
}

// AccessService is the access gate
type AccessService interface {
	IsGranted(ctx context.Context, username string) (bool, error)
	AccessStatus(ctx context.Context, username string) (*models.AccessStatusView, error)
	Grant(ctx context.Context, username, reason string) (*models.AccessGrant, error)
}

// ===== PROFESSOR SIDE =====

type ReviewService interface {
	Approve(ctx context.Context, req *models.ApproveRequest) (*models.ApprovalResult, error)
	Reject(ctx context.Context, req *models.RejectRequest) (*models.ActionResult, error)
	ApproveCode(ctx context.Context, req *models.CodeDecisionRequest) (*models.ApprovalResult, error)
	RejectCode(ctx context.Context, req *models.CodeDecisionRequest) (*models.ActionResult, error)
	ValidateCode(ctx context.Context, req *models.ValidateCodeRequest) (*models.ValidationResult, error)
	ApproveFinal(ctx context.Context, req *models.UsernameRequest) (*models.FinalDecisionResult, error)
	RejectFinal(ctx context.Context, req *models.UsernameRequest) (*models.FinalDecisionResult, error)
	GrantAccess(ctx context.Context, req *models.UsernameRequest) (*models.ActionResult, error)

	ListPending(ctx context.Context) ([]*models.PendingRequest, error)
	ListApproved(ctx context.Context) ([]*models.LoginRequest, error)
	ListRejected(ctx context.Context) ([]*models.LoginRequest, error)
	ListPendingCodes(ctx context.Context) ([]*models.VerificationCode, error)
	ListCodes(ctx context.Context, filters repositories.ListFilters) ([]*models.VerificationCode, error)
	ListFinalVerifications(ctx context.Context, status *models.FinalStatus) ([]*models.FinalVerification, error)
}

type UserService interface {
	Upsert(ctx context.Context, req *models.UpsertUserRequest) (*models.User, error)
	List(ctx context.Context, filters repositories.ListFilters) ([]*models.User, error)
}

type FeatureFlagService interface {
	IsEnabled(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) (map[string]bool, error)
	Set(ctx context.Context, key string, enabled bool) (*models.FeatureFlag, error)
}

type ExportService interface {
	// ExportRequests renders login requests as an XLSX workbook
	ExportRequests(ctx context.Context, filters repositories.LoginRequestFilters) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Login() LoginService
	Status() StatusService
	Access() AccessService
	Review() ReviewService
	User() UserService
	FeatureFlag() FeatureFlagService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PollingConfig is the interval and timeout published to clients
type PollingConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}
