package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

type loginService struct {
	repo      repositories.Repository
	flags     FeatureFlagService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewLoginService(repo repositories.Repository, flags FeatureFlagService, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) LoginService {
	return &loginService{
		repo:      repo,
		flags:     flags,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// SubmitLogin records a pending login request. Access is not touched.
func (s *loginService) SubmitLogin(ctx context.Context, req *models.LoginSubmission, client models.ClientInfo) (*models.LoginResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateLogin(req); len(errs) > 0 {
		return nil, errs
	}

	if req.AuthProvider == models.ProviderGoogle {
		enabled, err := s.flags.IsEnabled(ctx, models.FlagGoogleProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to read provider flag: %w", err)
		}
		if !enabled {
			return nil, ErrProviderDisabled
		}
	}

	clientInfo, err := json.Marshal(client)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client info: %w", err)
	}

	loginRequest := &models.LoginRequest{
		Username:     req.Username,
		Password:     req.Password,
		AuthProvider: req.AuthProvider,
		Status:       models.RequestPending,
		ClientInfo:   datatypes.JSON(clientInfo),
	}
	if err := s.repo.LoginRequest().Create(ctx, nil, loginRequest); err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}

	s.logger.Info("Login request submitted",
		"request_id", loginRequest.ID,
		"username", loginRequest.Username,
		"auth_provider", loginRequest.AuthProvider)
	publishEvent(ctx, s.publisher, s.logger, events.LoginSubmitted, requestEventData(loginRequest))

	return &models.LoginResult{
		Success:   true,
		Message:   "Login request submitted, waiting for approval",
		RequestID: loginRequest.ID,
		Status:    models.RequestPending,
	}, nil
}

// SubmitVerificationCode attaches a code to the addressed request, or to the
// user's latest request when no id is given. Approval is not required.
func (s *loginService) SubmitVerificationCode(ctx context.Context, req *models.CodeSubmission) (*models.CodeSubmissionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var loginRequest *models.LoginRequest
	var err error
	if req.RequestID != nil {
		loginRequest, err = s.repo.LoginRequest().GetByID(ctx, nil, *req.RequestID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUnknownRequestID
			}
			return nil, fmt.Errorf("failed to get login request: %w", err)
		}
		if err := workflow.CheckOwnership(loginRequest, req.Username); err != nil {
			return nil, ErrRequestOwnership
		}
	} else {
		loginRequest, err = s.repo.LoginRequest().GetLatestByUsername(ctx, nil, req.Username)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrLoginRequestNotFound
			}
			return nil, fmt.Errorf("failed to get login request: %w", err)
		}
	}

	if err := s.repo.LoginRequest().SetVerificationCode(ctx, nil, loginRequest.ID, req.VerificationCode); err != nil {
		return nil, fmt.Errorf("failed to attach verification code: %w", err)
	}
	if _, err := s.repo.VerificationCode().Upsert(ctx, nil, req.Username, req.VerificationCode, models.CodePending); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	s.logger.Info("Verification code submitted", "request_id", loginRequest.ID, "username", req.Username)
	publishEvent(ctx, s.publisher, s.logger, events.CodeSubmitted, events.WorkflowData{
		Username:  req.Username,
		RequestID: loginRequest.ID,
		Code:      req.VerificationCode,
		Status:    string(models.CodePending),
	})

	return &models.CodeSubmissionResult{
		Success:   true,
		Message:   "Verification code submitted, waiting for professor",
		Status:    models.RequestPending,
		RequestID: loginRequest.ID,
	}, nil
}

// RequestFinalVerification opens a pending final verification. Only an
// approved Google login may open one.
func (s *loginService) RequestFinalVerification(ctx context.Context, req *models.FinalVerificationSubmission) (*models.ActionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	latest, err := s.repo.LoginRequest().GetLatestByUsername(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLoginRequestNotFound
		}
		return nil, fmt.Errorf("failed to get login request: %w", err)
	}
	if !workflow.FinalVerificationAllowed(latest) {
		return nil, ErrFinalVerificationNotApplicable
	}

	fv := &models.FinalVerification{
		Username: req.Username,
		Status:   models.FinalPending,
	}
	if err := s.repo.FinalVerification().Create(ctx, nil, fv); err != nil {
		return nil, fmt.Errorf("failed to create final verification: %w", err)
	}

	s.logger.Info("Final verification requested", "username", req.Username, "final_verification_id", fv.ID)
	publishEvent(ctx, s.publisher, s.logger, events.FinalRequested, events.WorkflowData{
		Username:  req.Username,
		RequestID: latest.ID,
		Status:    string(models.FinalPending),
	})

	return &models.ActionResult{
		Success: true,
		Message: "Final verification requested",
	}, nil
}
