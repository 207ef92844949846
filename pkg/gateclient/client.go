// Package gateclient drives the student side of the login approval
// workflow: submissions plus the four polling loops.
package gateclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	loops      map[string]workflow.PollLoop
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPolling overrides interval and timeout of every loop
func WithPolling(interval, timeout time.Duration) Option {
	return func(c *Client) { c.setLoops(workflow.PollingContract(interval, timeout)) }
}

// NewClient creates a client using the default polling contract
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	c.setLoops(workflow.PollingContract(workflow.DefaultPollInterval, workflow.DefaultPollTimeout))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) setLoops(loops []workflow.PollLoop) {
	c.loops = make(map[string]workflow.PollLoop, len(loops))
	for _, loop := range loops {
		c.loops[loop.Name] = loop
	}
}

// Loop returns the contract the client polls with
func (c *Client) Loop(name string) workflow.PollLoop {
	return c.loops[name]
}

// SyncPolling replaces the local contract with the one the server publishes
func (c *Client) SyncPolling(ctx context.Context) error {
	var resp struct {
		Loops []workflow.PollLoop `json:"loops"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/config/polling", nil, &resp); err != nil {
		return err
	}
	for i := range resp.Loops {
		resp.Loops[i].Interval = time.Duration(resp.Loops[i].IntervalMs) * time.Millisecond
		resp.Loops[i].Timeout = time.Duration(resp.Loops[i].TimeoutMs) * time.Millisecond
	}
	if len(resp.Loops) > 0 {
		c.setLoops(resp.Loops)
	}
	return nil
}

// ===== SUBMISSIONS =====

func (c *Client) Login(ctx context.Context, username, password string, provider models.AuthProvider) (*models.LoginResult, error) {
	var result models.LoginResult
	err := c.do(ctx, http.MethodPost, "/api/login", models.LoginSubmission{
		Username:     username,
		Password:     password,
		AuthProvider: provider,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SubmitCode(ctx context.Context, username, code string, requestID *uint) (*models.CodeSubmissionResult, error) {
	var result models.CodeSubmissionResult
	err := c.do(ctx, http.MethodPost, "/api/verify", models.CodeSubmission{
		Username:         username,
		VerificationCode: code,
		RequestID:        requestID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RequestFinalVerification(ctx context.Context, username string) (*models.ActionResult, error) {
	var result models.ActionResult
	err := c.do(ctx, http.MethodPost, "/api/student/final-verification/request", models.FinalVerificationSubmission{
		Username: username,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Features(ctx context.Context) (map[string]bool, error) {
	flags := map[string]bool{}
	if err := c.do(ctx, http.MethodGet, "/api/config/features", nil, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// ===== SINGLE READS =====

func (c *Client) RequestStatus(ctx context.Context, username string) (*models.RequestStatusView, error) {
	var resp struct {
		Request *models.RequestStatusView `json:"request"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/student/request-status/"+url.PathEscape(username), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Request == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "empty request"}
	}
	return resp.Request, nil
}

func (c *Client) CodeStatus(ctx context.Context, username, code string) (*models.CodeStatusView, error) {
	var view models.CodeStatusView
	path := fmt.Sprintf("/api/student/code-status/%s/%s", url.PathEscape(username), url.PathEscape(code))
	if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) FinalStatus(ctx context.Context, username string) (*models.FinalStatusView, error) {
	var view models.FinalStatusView
	if err := c.do(ctx, http.MethodGet, "/api/student/final-verification/status/"+url.PathEscape(username), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) AccessStatus(ctx context.Context, username string) (*models.AccessStatusView, error) {
	var view models.AccessStatusView
	if err := c.do(ctx, http.MethodGet, "/api/student/access-status/"+url.PathEscape(username), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// do sends body as JSON and decodes a 2xx response into out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
