package client

import (
	"context"
	"fmt"
	"net/http"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates an account, optionally subscribed to Plan
// (one of PlanFree, PlanPremium, PlanPayPerRemedy) from the start
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Plan     string `json:"plan,omitempty"`
}

// LoginResponse carries the token pair and the account with its
// subscription status
type LoginResponse struct {
	Token        string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	return c.authenticate(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password})
}

// Register creates a new user account
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	if req.Plan != "" && !IsPlanName(req.Plan) {
		return nil, fmt.Errorf("unknown plan %q", req.Plan)
	}
	return c.authenticate(ctx, "/api/auth/register", req)
}

// RefreshToken exchanges a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	return c.authenticate(ctx, "/api/auth/refresh", map[string]string{"refreshToken": refreshToken})
}

// GetCurrentUser retrieves the caller with their subscription status
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout clears the server cookies and forgets the token
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// authenticate posts body to path and adopts the returned access token for
// every later call
func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}
