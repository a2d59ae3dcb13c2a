// Package client talks to the site API on behalf of the admin CLI. It
// implements authctx.Backend so an authctx.Context can drive it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"drravalement/site/internal/api"
	"drravalement/site/internal/apperr"
	"drravalement/site/internal/authctx"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the source of the bearer token used by admin calls.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ authctx.Backend = (*Client)(nil)

// ValidateSession returns nil for a token the server refuses.
func (c *Client) ValidateSession(ctx context.Context, token string) (*authctx.Identity, error) {
	var resp api.SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/session", token, nil, &resp)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, transient(err)
	}
	return &authctx.Identity{User: resp.User.Model(), Session: resp.Session.Model(), Token: token}, nil
}

func (c *Client) Authenticate(ctx context.Context, creds authctx.Credentials) (authctx.Identity, error) {
	var resp api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
				return authctx.Identity{}, &authctx.CredentialError{Message: apiErr.Message}
			}
		}
		return authctx.Identity{}, transient(err)
	}
	return authctx.Identity{User: resp.User.Model(), Session: resp.Session.Model(), Token: resp.Token}, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", token, nil, nil); err != nil {
		return transient(err)
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (api.User, error) {
	var resp struct {
		User api.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", c.token(), nil, &resp)
	return resp.User, err
}

func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, c.token(), nil, result)
}

func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, c.token(), body, result)
}

func (c *Client) Patch(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPatch, path, c.token(), body, result)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, c.token(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &authctx.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &apperr.APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// transient classifies an error as a backend outage unless the server gave
// a definite 4xx answer.
func transient(err error) error {
	var te *authctx.TransientError
	if errors.As(err, &te) {
		return err
	}
	var apiErr *apperr.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return err
	}
	return &authctx.TransientError{Err: err}
}
