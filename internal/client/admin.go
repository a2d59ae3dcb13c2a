package client

import (
	"context"
	"fmt"
	"net/url"

	"drravalement/site/internal/api"
)

// ListUsers fetches one page of users; page is 1-based.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) (api.UserList, error) {
	var resp api.UserList
	err := c.Get(ctx, fmt.Sprintf("/api/v1/admin/users?page=%d&perPage=%d", page, perPage), &resp)
	return resp, err
}

func (c *Client) CreateUser(ctx context.Context, req api.CreateUserRequest) (api.User, error) {
	var resp struct {
		User api.User `json:"user"`
	}
	err := c.Post(ctx, "/api/v1/admin/users", req, &resp)
	return resp.User, err
}

func (c *Client) UpdateUserRole(ctx context.Context, id, role string) error {
	return c.Patch(ctx, "/api/v1/admin/users/"+url.PathEscape(id)+"/role", api.UpdateRoleRequest{Role: role}, nil)
}

func (c *Client) UpdateUserStatus(ctx context.Context, id, status string) error {
	return c.Patch(ctx, "/api/v1/admin/users/"+url.PathEscape(id)+"/status", api.UpdateStatusRequest{Status: status}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Delete(ctx, "/api/v1/admin/users/"+url.PathEscape(id))
}

func (c *Client) ListQuotes(ctx context.Context, status string) ([]api.Quote, error) {
	path := "/api/v1/admin/quotes"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp api.QuoteList
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) UpdateQuoteStatus(ctx context.Context, id, status string) (api.Quote, error) {
	var resp struct {
		Quote api.Quote `json:"quote"`
	}
	err := c.Patch(ctx, "/api/v1/admin/quotes/"+url.PathEscape(id)+"/status", api.UpdateStatusRequest{Status: status}, &resp)
	return resp.Quote, err
}

func (c *Client) ListSessions(ctx context.Context) ([]api.Session, error) {
	var resp struct {
		Sessions []api.Session `json:"sessions"`
	}
	if err := c.Get(ctx, "/api/v1/auth/sessions", &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}
