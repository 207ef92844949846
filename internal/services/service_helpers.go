package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/events"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

// publishEvent sends a workflow event; failures are logged and swallowed
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType string, data events.WorkflowData) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.Warn("Failed to publish event", "type", eventType, "username", data.Username, "error", err)
	}
}

// applyDecision persists a request decision guarded on the status it was
// decided from, then reloads req from the store so the caller sees any code
// the student attached concurrently. Losing the race is fine when the winner
// reached the same state.
func applyDecision(ctx context.Context, repo repositories.Repository, req *models.LoginRequest, decision workflow.RequestDecision) error {
	now := time.Now()
	applied, err := repo.LoginRequest().ApplyDecision(ctx, nil, req.ID, decision.From, repositories.RequestUpdate{
		Status:      decision.To,
		FillCode:    decision.FillCode,
		Message:     decision.Message,
		ProcessedAt: &now,
	})
	if err != nil {
		return err
	}

	current, err := repo.LoginRequest().GetByID(ctx, nil, req.ID)
	if err != nil {
		return err
	}
	if !applied && current.Status != decision.To {
		return ErrConcurrentUpdate
	}
	*req = *current
	return nil
}

// applyCodeSideEffect moves the code attached to a decided request to the
// status the decision implies.
func applyCodeSideEffect(ctx context.Context, repo repositories.Repository, req *models.LoginRequest, to models.RequestStatus) error {
	if req.VerificationCode == nil || *req.VerificationCode == "" {
		return nil
	}
	_, err := repo.VerificationCode().Upsert(ctx, nil, req.Username, *req.VerificationCode, workflow.CodeStatusFor(to))
	return err
}

// requestEventData describes a login request as an event payload
func requestEventData(req *models.LoginRequest) events.WorkflowData {
	data := events.WorkflowData{
		Username:     req.Username,
		RequestID:    req.ID,
		AuthProvider: string(req.AuthProvider),
		Status:       string(req.Status),
	}
	if req.VerificationCode != nil {
		data.Code = *req.VerificationCode
	}
	return data
}
