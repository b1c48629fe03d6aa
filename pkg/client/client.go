// Package client is a typed REST client for the Zyllen API.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response carrying the server's error envelope
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zyllen api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data"`
	Error      string      `json:"error"`
}

// Session is returned by Login
type Session struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	User             *User     `json:"user"`
	Permissions      []string  `json:"permissions"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	IsActive bool   `json:"is_active"`
}

type Me struct {
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
}

type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsSystem    bool         `json:"is_system"`
	Permissions []Permission `json:"permissions"`
}

type Permission struct {
	ID          string `json:"id"`
	Screen      string `json:"screen"`
	Action      string `json:"action"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type RolePermissions struct {
	RoleID        string   `json:"role_id"`
	PermissionIDs []string `json:"permission_ids"`
	Added         []string `json:"added,omitempty"`
	Removed       []string `json:"removed,omitempty"`
}

// Client talks to one Zyllen API server
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL, e.g. http://localhost:8080
func New(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

// SetToken authenticates subsequent calls with a bearer token
func (c *Client) SetToken(token string) *Client {
	c.http.SetAuthToken(token)
	return c
}

// Login signs in an internal user and keeps the access token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	if err := c.do(ctx, "POST", "/auth/login", map[string]string{"email": email, "password": password}, &session); err != nil {
		return nil, err
	}
	c.SetToken(session.AccessToken)
	return &session, nil
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.do(ctx, "GET", "/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, "GET", "/access/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	if err := c.do(ctx, "GET", "/access/permissions", nil, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (c *Client) RolePermissions(ctx context.Context, roleID string) (*RolePermissions, error) {
	var perms RolePermissions
	if err := c.do(ctx, "GET", "/access/roles/"+roleID+"/permissions", nil, &perms); err != nil {
		return nil, err
	}
	return &perms, nil
}

// ReplaceRolePermissions overwrites the role's permission set with permissionIDs
func (c *Client) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (*RolePermissions, error) {
	if permissionIDs == nil {
		permissionIDs = []string{}
	}
	var perms RolePermissions
	body := map[string][]string{"permission_ids": permissionIDs}
	if err := c.do(ctx, "PUT", "/access/roles/"+roleID+"/permissions", body, &perms); err != nil {
		return nil, err
	}
	return &perms, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	// decoding into Data fills out in place
	result := &envelope{Data: out}
	failure := &envelope{}

	req := c.http.R().SetContext(ctx).SetResult(result).SetError(failure)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}
