package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

type reviewService struct {
	repo      repositories.Repository
	access    AccessService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReviewService(repo repositories.Repository, access AccessService, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ReviewService {
	return &reviewService{
		repo:      repo,
		access:    access,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== REQUEST DECISIONS =====

func (s *reviewService) getOwnedRequest(ctx context.Context, id uint, username string) (*models.LoginRequest, error) {
	req, err := s.repo.LoginRequest().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLoginRequestNotFound
		}
		return nil, fmt.Errorf("failed to get login request: %w", err)
	}
	if err := workflow.CheckOwnership(req, username); err != nil {
		return nil, ErrRequestOwnership
	}
	return req, nil
}

// Approve approves a request, records the student's credentials and, for
// providers without a final gate, grants access.
func (s *reviewService) Approve(ctx context.Context, req *models.ApproveRequest) (*models.ApprovalResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	loginRequest, err := s.getOwnedRequest(ctx, req.RequestID, req.Username)
	if err != nil {
		return nil, err
	}

	decision, err := workflow.Approve(loginRequest, req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, err.Error())
	}
	if err := applyDecision(ctx, s.repo, loginRequest, decision); err != nil {
		return nil, s.decisionError(err, "approve")
	}

	if _, err := s.repo.User().Upsert(ctx, nil, loginRequest.Username, loginRequest.Password); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	if err := applyCodeSideEffect(ctx, s.repo, loginRequest, decision.To); err != nil {
		return nil, fmt.Errorf("failed to approve verification code: %w", err)
	}

	s.logger.Info("Login request approved",
		"request_id", loginRequest.ID,
		"username", loginRequest.Username,
		"changed", decision.Changed)
	publishEvent(ctx, s.publisher, s.logger, events.LoginApproved, requestEventData(loginRequest))

	return s.approvalResult(ctx, loginRequest, "Login request approved")
}

// Reject rejects a request. An existing access grant is left in place.
func (s *reviewService) Reject(ctx context.Context, req *models.RejectRequest) (*models.ActionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	loginRequest, err := s.getOwnedRequest(ctx, req.RequestID, req.Username)
	if err != nil {
		return nil, err
	}

	decision, err := workflow.Reject(loginRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, err.Error())
	}
	if err := applyDecision(ctx, s.repo, loginRequest, decision); err != nil {
		return nil, s.decisionError(err, "reject")
	}

	if err := applyCodeSideEffect(ctx, s.repo, loginRequest, decision.To); err != nil {
		return nil, fmt.Errorf("failed to reject verification code: %w", err)
	}

	s.logger.Info("Login request rejected", "request_id", loginRequest.ID, "username", loginRequest.Username)
	publishEvent(ctx, s.publisher, s.logger, events.LoginRejected, requestEventData(loginRequest))

	return &models.ActionResult{
		Success: true,
		Message: "Login request rejected",
	}, nil
}

// ===== CODE SHORTCUTS =====

// ApproveCode forces the user's latest request to approved whatever its
// current status, attaching the code only if the request has none.
func (s *reviewService) ApproveCode(ctx context.Context, req *models.CodeDecisionRequest) (*models.ApprovalResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	loginRequest, err := s.repo.LoginRequest().GetLatestByUsername(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLoginRequestNotFound
		}
		return nil, fmt.Errorf("failed to get login request: %w", err)
	}

	decision := workflow.ForceApproveWithCode(loginRequest, req.Code, req.Message)
	if err := applyDecision(ctx, s.repo, loginRequest, decision); err != nil {
		return nil, s.decisionError(err, "approve code")
	}

	if _, err := s.repo.VerificationCode().Upsert(ctx, nil, req.Username, req.Code, models.CodeApproved); err != nil {
		return nil, fmt.Errorf("failed to approve verification code: %w", err)
	}

	s.logger.Info("Verification code approved",
		"request_id", loginRequest.ID,
		"username", req.Username,
		"previous_status", decision.From)
	publishEvent(ctx, s.publisher, s.logger, events.CodeApproved, events.WorkflowData{
		Username:     req.Username,
		RequestID:    loginRequest.ID,
		AuthProvider: string(loginRequest.AuthProvider),
		Code:         req.Code,
		Status:       string(models.CodeApproved),
	})

	return s.approvalResult(ctx, loginRequest, "Verification code approved")
}

// RejectCode marks an existing code rejected. The login request is untouched.
func (s *reviewService) RejectCode(ctx context.Context, req *models.CodeDecisionRequest) (*models.ActionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.VerificationCode().GetByUsernameAndCode(ctx, nil, req.Username, req.Code); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrVerificationCodeNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	if _, err := s.repo.VerificationCode().Upsert(ctx, nil, req.Username, req.Code, models.CodeRejected); err != nil {
		return nil, fmt.Errorf("failed to reject verification code: %w", err)
	}

	s.logger.Info("Verification code rejected", "username", req.Username)
	publishEvent(ctx, s.publisher, s.logger, events.CodeRejected, events.WorkflowData{
		Username: req.Username,
		Code:     req.Code,
		Status:   string(models.CodeRejected),
	})

	return &models.ActionResult{
		Success: true,
		Message: "Verification code rejected",
	}, nil
}

// ValidateCode compares a code typed by the professor against the newest
// unused code of an approved user. A mismatch is an outcome, not an error.
func (s *reviewService) ValidateCode(ctx context.Context, req *models.ValidateCodeRequest) (*models.ValidationResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	stored, err := s.repo.VerificationCode().GetLatestUnusedForApproved(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoCodeToValidate
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	outcome := workflow.DecideCodeValidation(stored, req.SubmittedCode)
	if !outcome.Match {
		if _, err := s.repo.VerificationCode().MarkValidated(ctx, nil, stored.ID, outcome.Status, false); err != nil {
			return nil, fmt.Errorf("failed to reject verification code: %w", err)
		}

		s.logger.Info("Verification code mismatch", "username", req.Username, "code_id", stored.ID)
		publishEvent(ctx, s.publisher, s.logger, events.CodeRejected, events.WorkflowData{
			Username: req.Username,
			Status:   string(outcome.Status),
			Reason:   "mismatch",
		})

		return &models.ValidationResult{
			Success:  false,
			Message:  "Verification code does not match",
			Username: req.Username,
		}, nil
	}

	marked, err := s.repo.VerificationCode().MarkValidated(ctx, nil, stored.ID, outcome.Status, true)
	if err != nil {
		return nil, fmt.Errorf("failed to approve verification code: %w", err)
	}
	if !marked {
		return nil, ErrCodeAlreadyUsed
	}

	if outcome.Grant {
		if _, err := s.access.Grant(ctx, req.Username, "code_validated"); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Verification code validated", "username", req.Username, "code_id", stored.ID)
	publishEvent(ctx, s.publisher, s.logger, events.CodeApproved, events.WorkflowData{
		Username: req.Username,
		Code:     stored.Code,
		Status:   string(outcome.Status),
	})

	return &models.ValidationResult{
		Success:       true,
		Message:       "Verification code validated, access granted",
		Username:      req.Username,
		AccessGranted: outcome.Grant,
	}, nil
}

// ===== FINAL VERIFICATION =====

func (s *reviewService) ApproveFinal(ctx context.Context, req *models.UsernameRequest) (*models.FinalDecisionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	updated, err := s.repo.FinalVerification().DecidePending(ctx, nil, req.Username, models.FinalApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to approve final verification: %w", err)
	}

	result := &models.FinalDecisionResult{
		Success: true,
		Message: "No pending final verification",
		Updated: updated,
	}
	if updated == 0 {
		return result, nil
	}

	if _, err := s.access.Grant(ctx, req.Username, "final_verification"); err != nil {
		return nil, err
	}
	result.Message = "Final verification approved, access granted"
	result.AccessGranted = true

	s.logger.Info("Final verification approved", "username", req.Username, "rows", updated)
	publishEvent(ctx, s.publisher, s.logger, events.FinalApproved, events.WorkflowData{
		Username: req.Username,
		Status:   string(models.FinalApproved),
	})

	return result, nil
}

func (s *reviewService) RejectFinal(ctx context.Context, req *models.UsernameRequest) (*models.FinalDecisionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	updated, err := s.repo.FinalVerification().DecidePending(ctx, nil, req.Username, models.FinalRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to reject final verification: %w", err)
	}

	result := &models.FinalDecisionResult{
		Success: true,
		Message: "No pending final verification",
		Updated: updated,
	}
	if updated == 0 {
		return result, nil
	}
	result.Message = "Final verification rejected"

	s.logger.Info("Final verification rejected", "username", req.Username, "rows", updated)
	publishEvent(ctx, s.publisher, s.logger, events.FinalRejected, events.WorkflowData{
		Username: req.Username,
		Status:   string(models.FinalRejected),
	})

	return result, nil
}

// GrantAccess is the manual override: no precondition
func (s *reviewService) GrantAccess(ctx context.Context, req *models.UsernameRequest) (*models.ActionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.access.Grant(ctx, req.Username, "manual"); err != nil {
		return nil, err
	}

	return &models.ActionResult{
		Success: true,
		Message: "Access granted",
	}, nil
}

// ===== LISTINGS =====

// ListPending returns pending requests oldest first. A request without its
// own code shows the latest code the user submitted.
func (s *reviewService) ListPending(ctx context.Context) ([]*models.PendingRequest, error) {
	status := models.RequestPending
	requests, _, err := s.repo.LoginRequest().List(ctx, nil, repositories.LoginRequestFilters{
		ListFilters: repositories.ListFilters{SortBy: "created_at", SortOrder: "asc"},
		Status:      &status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	latestCodes := make(map[string]string)
	result := make([]*models.PendingRequest, 0, len(requests))
	for _, req := range requests {
		latest, ok := latestCodes[req.Username]
		if !ok {
			vc, err := s.repo.VerificationCode().GetLatestByUsername(ctx, nil, req.Username)
			switch {
			case err == nil:
				latest = vc.Code
			case !repositories.IsNotFoundError(err):
				return nil, fmt.Errorf("failed to get latest code: %w", err)
			}
			latestCodes[req.Username] = latest
		}

		result = append(result, &models.PendingRequest{
			LoginRequest: *req,
			Code:         workflow.FillIfAbsent(req.VerificationCode, latest),
		})
	}

	return result, nil
}

func (s *reviewService) listDecided(ctx context.Context, status models.RequestStatus) ([]*models.LoginRequest, error) {
	requests, _, err := s.repo.LoginRequest().List(ctx, nil, repositories.LoginRequestFilters{
		ListFilters: repositories.ListFilters{SortBy: "processed_at", SortOrder: "desc"},
		Status:      &status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", status, err)
	}
	return requests, nil
}

func (s *reviewService) ListApproved(ctx context.Context) ([]*models.LoginRequest, error) {
	return s.listDecided(ctx, models.RequestApproved)
}

func (s *reviewService) ListRejected(ctx context.Context) ([]*models.LoginRequest, error) {
	return s.listDecided(ctx, models.RequestRejected)
}

func (s *reviewService) ListPendingCodes(ctx context.Context) ([]*models.VerificationCode, error) {
	codes, err := s.repo.VerificationCode().ListByStatus(ctx, nil, models.CodePending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending codes: %w", err)
	}
	return codes, nil
}

func (s *reviewService) ListCodes(ctx context.Context, filters repositories.ListFilters) ([]*models.VerificationCode, error) {
	codes, err := s.repo.VerificationCode().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	return codes, nil
}

func (s *reviewService) ListFinalVerifications(ctx context.Context, status *models.FinalStatus) ([]*models.FinalVerification, error) {
	rows, err := s.repo.FinalVerification().List(ctx, nil, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list final verifications: %w", err)
	}
	return rows, nil
}

// ===== HELPERS =====

// approvalResult applies the provider policy after an approval
func (s *reviewService) approvalResult(ctx context.Context, req *models.LoginRequest, message string) (*models.ApprovalResult, error) {
	policy := workflow.PolicyFor(req.AuthProvider)

	result := &models.ApprovalResult{
		Success:                   true,
		Message:                   message,
		RequestID:                 req.ID,
		Username:                  req.Username,
		VerificationCode:          req.VerificationCode,
		RequiresFinalVerification: policy.RequiresFinalVerification,
	}

	if policy.AutoGrantOnApproval {
		if _, err := s.access.Grant(ctx, req.Username, "approved"); err != nil {
			return nil, err
		}
		result.AccessGranted = true
	}

	return result, nil
}

func (s *reviewService) decisionError(err error, action string) error {
	if errors.Is(err, ErrConcurrentUpdate) || repositories.IsNotFoundError(err) {
		s.logger.Warn("Decision lost a concurrent update", "action", action, "error", err)
		if repositories.IsNotFoundError(err) {
			return ErrLoginRequestNotFound
		}
		return err
	}
	return fmt.Errorf("failed to %s login request: %w", action, err)
}
