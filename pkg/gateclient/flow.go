package gateclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

var (
	ErrRequestRejected = errors.New("login request rejected")
	ErrCodeRejected    = errors.New("verification code rejected")
	ErrFinalRejected   = errors.New("final verification rejected")
)

// Step reports progress of RunLogin
type Step struct {
	Stage   string
	Status  string
	Message string
}

// LoginFlow is the full student journey for one login attempt
type LoginFlow struct {
	Username string
	Password string
	Provider models.AuthProvider
	// Code is optional; when set it is attached right after login and the
	// flow also waits for the professor to validate it.
	Code string

	OnStep func(Step)
}

func (f *LoginFlow) report(stage, status, message string) {
	if f.OnStep != nil {
		f.OnStep(Step{Stage: stage, Status: status, Message: message})
	}
}

// RunLogin submits the login and walks every gate until access is granted.
// Rejections return the matching sentinel; timeouts return ErrPollTimedOut.
func (c *Client) RunLogin(ctx context.Context, f *LoginFlow) error {
	result, err := c.Login(ctx, f.Username, f.Password, f.Provider)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	f.report(workflow.LoopRequestApproval, string(result.Status), result.Message)

	if f.Code != "" {
		requestID := result.RequestID
		if _, err := c.SubmitCode(ctx, f.Username, f.Code, &requestID); err != nil {
			return fmt.Errorf("submit code: %w", err)
		}
		f.report(workflow.LoopCodeValidation, string(models.CodePending), "code submitted")
	}

	view, err := c.WaitForRequestDecision(ctx, f.Username)
	if err != nil {
		return fmt.Errorf("wait for approval: %w", err)
	}
	f.report(workflow.LoopRequestApproval, string(view.Status), derefString(view.Message))
	if view.Status == models.RequestRejected {
		return ErrRequestRejected
	}

	if f.Code != "" {
		status, err := c.WaitForCodeValidation(ctx, f.Username, f.Code)
		if err != nil {
			return fmt.Errorf("wait for code validation: %w", err)
		}
		f.report(workflow.LoopCodeValidation, string(status), "")
		if status == models.CodeRejected {
			return ErrCodeRejected
		}
	}

	if workflow.PolicyFor(view.AuthProvider).RequiresFinalVerification {
		if _, err := c.RequestFinalVerification(ctx, f.Username); err != nil {
			return fmt.Errorf("request final verification: %w", err)
		}
		status, err := c.WaitForFinalVerification(ctx, f.Username)
		if err != nil {
			return fmt.Errorf("wait for final verification: %w", err)
		}
		f.report(workflow.LoopFinalVerification, string(status), "")
		if status == models.FinalRejected {
			return ErrFinalRejected
		}
	}

	if err := c.WaitForAccess(ctx, f.Username); err != nil {
		return fmt.Errorf("wait for access: %w", err)
	}
	f.report(workflow.LoopAccessGrant, "true", "access granted")
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
