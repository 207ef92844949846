package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

type statusService struct {
	repo      repositories.Repository
	polling   PollingConfig
	logger    *slog.Logger
	validator *validator.Validator
}

func NewStatusService(repo repositories.Repository, polling PollingConfig, logger *slog.Logger, validator *validator.Validator) StatusService {
	return &statusService{
		repo:      repo,
		polling:   polling,
		logger:    logger,
		validator: validator,
	}
}

func (s *statusService) checkUsername(username string) error {
	return s.validator.Validate(&models.UsernameRequest{Username: username})
}

// RequestStatus reports the user's latest request. Absence is an error here;
// the polling client keeps polling on it.
func (s *statusService) RequestStatus(ctx context.Context, username string) (*models.RequestStatusView, error) {
	if err := s.checkUsername(username); err != nil {
		return nil, err
	}

	req, err := s.repo.LoginRequest().GetLatestByUsername(ctx, nil, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLoginRequestNotFound
		}
		return nil, fmt.Errorf("failed to get login request: %w", err)
	}

	return &models.RequestStatusView{
		ID:               req.ID,
		Status:           req.Status,
		VerificationCode: req.VerificationCode,
		ProcessedAt:      req.ProcessedAt,
		Message:          req.Message,
		AuthProvider:     req.AuthProvider,
	}, nil
}

func (s *statusService) CodeStatus(ctx context.Context, username, code string) (*models.CodeStatusView, error) {
	if err := s.checkUsername(username); err != nil {
		return nil, err
	}

	vc, err := s.repo.VerificationCode().GetByUsernameAndCode(ctx, nil, username, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &models.CodeStatusView{Success: false, Status: models.PollStatusNotFound}, nil
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	return &models.CodeStatusView{
		Success:     true,
		Status:      string(vc.ValidationStatus),
		ValidatedAt: vc.ValidatedAt,
		Used:        vc.Used,
	}, nil
}

func (s *statusService) FinalStatus(ctx context.Context, username string) (*models.FinalStatusView, error) {
	if err := s.checkUsername(username); err != nil {
		return nil, err
	}

	fv, err := s.repo.FinalVerification().GetLatestByUsername(ctx, nil, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &models.FinalStatusView{Status: models.PollStatusNotFound}, nil
		}
		return nil, fmt.Errorf("failed to get final verification: %w", err)
	}

	createdAt := fv.CreatedAt
	return &models.FinalStatusView{
		Status:      string(fv.Status),
		CreatedAt:   &createdAt,
		ProcessedAt: fv.ProcessedAt,
	}, nil
}

func (s *statusService) PollingContract() []workflow.PollLoop {
	return workflow.PollingContract(s.polling.Interval, s.polling.Timeout)
}
