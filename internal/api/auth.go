package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Login exchanges email and password for a token pair, stores it, and returns
// the signed-in user. If the login body omits the user, /auth/me is asked.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp LoginResponse
	err := c.public(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response has no access token")
	}
	if err := c.creds.SaveCredentials(resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	c.logger.Info("logged in", "email", email)

	if resp.User != nil {
		return resp.User, nil
	}
	return c.Me(ctx)
}

// Logout forgets the stored credentials.
func (c *Client) Logout() error {
	if err := c.creds.ClearCredentials(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// Me returns the user the stored access token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Signup registers a new account. The email must already be verified.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	return c.public(ctx, http.MethodPost, "/auth/signup", req, nil)
}

// SendCode asks the backend to mail a verification code to email.
func (c *Client) SendCode(ctx context.Context, email string) error {
	return c.public(ctx, http.MethodPost, "/auth/send-code", map[string]string{
		"email": strings.TrimSpace(email),
	}, nil)
}

// VerifyCode confirms the code mailed by SendCode. The backend expects the
// code as a number.
func (c *Client) VerifyCode(ctx context.Context, email, code string) error {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("parse code: %w", err)
	}
	return c.public(ctx, http.MethodPost, "/auth/verify-code", struct {
		Email string `json:"email"`
		Code  int    `json:"code"`
	}{strings.TrimSpace(email), n}, nil)
}
