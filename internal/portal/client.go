// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package portal provides the HTTP client for the sessionguard portal API.
//
// Client satisfies session.ConfigSource and session.LogoutService, so a
// guard can point its controller straight at a running portal.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/sessionguard/internal/session"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the portal client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches on Type so callers can compare against the sentinels.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Message == "" && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeRejected
	ErrTypeInvalidResponse
	ErrTypeNotLoggedIn
)

// Sentinels for errors.Is; they match any ClientError of the same type.
var (
	ErrConnection      = &ClientError{Type: ErrTypeConnection}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout}
	ErrUnauthorized    = &ClientError{Type: ErrTypeUnauthorized}
	ErrRejected        = &ClientError{Type: ErrTypeRejected}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse}
	ErrNotLoggedIn     = &ClientError{Type: ErrTypeNotLoggedIn}
)

// =============================================================================
// CLIENT
// =============================================================================

var (
	_ session.ConfigSource  = (*Client)(nil)
	_ session.LogoutService = (*Client)(nil)
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// Client talks to one portal. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for the portal at baseURL. A zero timeout
// uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the portal address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the bearer token sent with authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token            string `json:"token"`
	UserID           string `json:"userId"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type timeoutBody struct {
	InactivityTimeoutMinutes float64 `json:"inactivityTimeoutMinutes"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Health checks that the portal answers /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// FetchSettings reads the community inactivity timeout. It implements
// session.ConfigSource.
func (c *Client) FetchSettings(ctx context.Context) (*session.Settings, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/community/session-timeout", nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var settings session.Settings
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode settings", Cause: err}
	}
	return &settings, nil
}

// SetTimeout updates the community inactivity timeout. Requires an admin
// token.
func (c *Client) SetTimeout(ctx context.Context, minutes int) error {
	resp, err := c.do(ctx, http.MethodPut, "/api/community/session-timeout",
		timeoutBody{InactivityTimeoutMinutes: float64(minutes)}, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, "/api/login", body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode login response", Cause: err}
	}
	if result.Token == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "login response carried no token"}
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Logout revokes the current token. A response whose payload reports
// success:false is a failure even on a 2xx status. It implements
// session.LogoutService.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/logout", nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out logoutResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &ClientError{Type: typeForStatus(resp.StatusCode), StatusCode: resp.StatusCode,
				Message: "logout failed: " + resp.Status}
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode logout response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return &ClientError{Type: ErrTypeRejected, StatusCode: resp.StatusCode, Message: "logout rejected: " + msg}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body interface{}, auth bool) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		token := c.Token()
		if token == "" {
			return nil, &ClientError{Type: ErrTypeNotLoggedIn, Message: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "portal unreachable", Cause: err}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func typeForStatus(code int) ErrorType {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrTypeUnauthorized
	case http.StatusBadRequest:
		return ErrTypeRejected
	default:
		return ErrTypeInvalidResponse
	}
}

func statusError(resp *http.Response) error {
	msg := resp.Status
	var body errorResponse
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024)); err == nil {
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			msg = body.Error
		}
	}
	return &ClientError{
		Type:       typeForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("portal returned %d: %s", resp.StatusCode, msg),
	}
}
