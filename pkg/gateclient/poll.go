package gateclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

// ErrPollTimedOut means the loop gave up waiting. It is not a rejection.
var ErrPollTimedOut = errors.New("timed out")

// fetchFunc reads the current value of a loop's state once
type fetchFunc func(ctx context.Context) (string, error)

// poll reads immediately, then every loop.Interval, until the value is
// terminal. Read errors are transient and keep the loop running, except
// client errors other than 404 which cannot succeed on retry.
func (c *Client) poll(ctx context.Context, loop workflow.PollLoop, fetch fetchFunc) (string, error) {
	interval := loop.Interval
	if interval <= 0 {
		interval = workflow.DefaultPollInterval
	}

	var deadline <-chan time.Time
	if loop.Timeout > 0 {
		timer := time.NewTimer(loop.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, err := fetch(ctx)
		switch {
		case err == nil:
			if workflow.IsTerminal(loop, value) {
				return value, nil
			}
		case ctx.Err() != nil:
			return "", ctx.Err()
		case isPermanent(err):
			return "", err
		default:
			c.logger.Debug("Poll read failed, retrying", "loop", loop.Name, "error", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", ErrPollTimedOut
		case <-ticker.C:
		}
	}
}

func isPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusNotFound &&
		apiErr.StatusCode != http.StatusTooManyRequests
}

// WaitForRequestDecision polls until the latest request is approved or
// rejected. It has no timeout of its own; cancel ctx to stop.
func (c *Client) WaitForRequestDecision(ctx context.Context, username string) (*models.RequestStatusView, error) {
	var last *models.RequestStatusView
	_, err := c.poll(ctx, c.Loop(workflow.LoopRequestApproval), func(ctx context.Context) (string, error) {
		view, err := c.RequestStatus(ctx, username)
		if err != nil {
			return "", err
		}
		last = view
		return string(view.Status), nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

// WaitForCodeValidation polls one code until it is approved or rejected
func (c *Client) WaitForCodeValidation(ctx context.Context, username, code string) (models.CodeStatus, error) {
	status, err := c.poll(ctx, c.Loop(workflow.LoopCodeValidation), func(ctx context.Context) (string, error) {
		view, err := c.CodeStatus(ctx, username, code)
		if err != nil {
			return "", err
		}
		return view.Status, nil
	})
	return models.CodeStatus(status), err
}

// WaitForFinalVerification polls the latest final verification
func (c *Client) WaitForFinalVerification(ctx context.Context, username string) (models.FinalStatus, error) {
	status, err := c.poll(ctx, c.Loop(workflow.LoopFinalVerification), func(ctx context.Context) (string, error) {
		view, err := c.FinalStatus(ctx, username)
		if err != nil {
			return "", err
		}
		return view.Status, nil
	})
	return models.FinalStatus(status), err
}

// WaitForAccess polls until access is granted
func (c *Client) WaitForAccess(ctx context.Context, username string) error {
	_, err := c.poll(ctx, c.Loop(workflow.LoopAccessGrant), func(ctx context.Context) (string, error) {
		view, err := c.AccessStatus(ctx, username)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(view.Granted), nil
	})
	return err
}
