package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

type accessService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewAccessService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) AccessService {
	return &accessService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// IsGranted is false when no grant row exists
func (s *accessService) IsGranted(ctx context.Context, username string) (bool, error) {
	grant, err := s.repo.AccessGrant().GetByUsername(ctx, nil, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read access grant: %w", err)
	}
	return grant.Granted, nil
}

func (s *accessService) AccessStatus(ctx context.Context, username string) (*models.AccessStatusView, error) {
	grant, err := s.repo.AccessGrant().GetByUsername(ctx, nil, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &models.AccessStatusView{Username: username, Granted: false}, nil
		}
		return nil, fmt.Errorf("failed to read access grant: %w", err)
	}

	return &models.AccessStatusView{
		Username:  username,
		Granted:   grant.Granted,
		GrantedAt: grant.GrantedAt,
	}, nil
}

// Grant upserts a granted row. reason names the action that caused it.
func (s *accessService) Grant(ctx context.Context, username, reason string) (*models.AccessGrant, error) {
	grant, err := s.repo.AccessGrant().Upsert(ctx, nil, username, true)
	if err != nil {
		return nil, fmt.Errorf("failed to grant access: %w", err)
	}

	s.logger.Info("Access granted", "username", username, "reason", reason)
	publishEvent(ctx, s.publisher, s.logger, events.AccessGranted, events.WorkflowData{
		Username: username,
		Reason:   reason,
	})

	return grant, nil
}
