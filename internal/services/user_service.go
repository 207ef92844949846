package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Upsert records credentials for a student and grants access in one transaction
func (s *userService) Upsert(ctx context.Context, req *models.UpsertUserRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		user, err = tx.User().Upsert(ctx, nil, req.Username, req.Password)
		if err != nil {
			return fmt.Errorf("failed to store user: %w", err)
		}
		if _, err := tx.AccessGrant().Upsert(ctx, nil, req.Username, true); err != nil {
			return fmt.Errorf("failed to grant access: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User stored and granted", "username", req.Username)
	publishEvent(ctx, s.publisher, s.logger, events.AccessGranted, events.WorkflowData{
		Username: req.Username,
		Reason:   "user_upsert",
	})

	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.ListFilters) ([]*models.User, error) {
	users, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
