// Package api is the REST client for the Clang backend. Authenticated calls
// carry the stored bearer token and refresh it at most once per call.
package api

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

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Clang-dev/clang-tui/internal/db"
	"github.com/Clang-dev/clang-tui/internal/logging"
)

// ErrUnauthenticated means no usable credentials remain. Callers send the user
// to the login screen.
var ErrUnauthenticated = errors.New("unauthenticated")

// RequestIDHeader carries a per-request id for log correlation.
const RequestIDHeader = "X-Request-ID"

// CredentialStore persists the access/refresh pair. *db.Store implements it.
type CredentialStore interface {
	Credentials() (*db.Credentials, error)
	SaveCredentials(access, refresh string) error
	ClearCredentials() error
}

// Client talks to one versioned backend base URL.
type Client struct {
	base   string
	http   *http.Client
	creds  CredentialStore
	logger *log.Logger

	refreshMu sync.Mutex
}

// NewClient creates a client for base (e.g. https://host/0.1.0). A nil
// httpClient uses http.DefaultClient; a nil logger discards.
func NewClient(base string, creds CredentialStore, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   httpClient,
		creds:  creds,
		logger: logging.OrDiscard(logger).WithPrefix(logging.PrefixAPI),
	}
}

// Error is a non-2xx response. Detail is the backend's "detail" message when
// one was sent.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (status %d)", e.Detail, e.Status)
	}
	return fmt.Sprintf("unexpected status code %d", e.Status)
}

// Message returns the text to show a user for err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, ErrUnauthenticated) {
		return "Your session has expired. Please log in again."
	}
	return err.Error()
}

// Do sends an authenticated request and returns the response unmodified.
// On 401/403 it refreshes the access token once and retries once. If the
// refresh fails or the retry is rejected again, credentials are cleared and
// ErrUnauthenticated is returned. Transport errors are returned as-is.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	creds, err := c.creds.Credentials()
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if creds == nil {
		return nil, ErrUnauthenticated
	}

	resp, err := c.send(ctx, method, path, payload, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if !isAuthFailure(resp.StatusCode) {
		return resp, nil
	}
	discard(resp)

	token, err := c.refresh(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if isAuthFailure(resp.StatusCode) {
		discard(resp)
		c.logger.Warn("rejected after refresh", "method", method, "path", path, "status", resp.StatusCode)
		c.clearCredentials()
		return nil, ErrUnauthenticated
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new access token. stale is the
// token that was rejected; if another call already replaced it, the stored
// token is returned without a second refresh.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	creds, err := c.creds.Credentials()
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	if creds == nil {
		return "", ErrUnauthenticated
	}
	if creds.AccessToken != stale {
		return creds.AccessToken, nil
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err = c.public(ctx, http.MethodPost, "/auth/refresh_token", map[string]string{
		"refresh_token": creds.RefreshToken,
	}, &out)
	if err == nil && out.AccessToken == "" {
		err = errors.New("empty access token")
	}
	if err != nil {
		c.logger.Warn("token refresh failed", "err", err)
		c.clearCredentials()
		return "", ErrUnauthenticated
	}

	if err := c.creds.SaveCredentials(out.AccessToken, creds.RefreshToken); err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}
	c.logger.Info("access token refreshed")
	return out.AccessToken, nil
}

func (c *Client) clearCredentials() {
	if err := c.creds.ClearCredentials(); err != nil {
		c.logger.Error("clear credentials", "err", err)
	}
}

// call is Do followed by status check and JSON decode into out (if non-nil).
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// public sends a request without a bearer token.
func (c *Client) public(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, method, path, payload, "")
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", "method", method, "path", path, "id", id, "err", err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("request", "method", method, "path", path, "id", id, "status", resp.StatusCode)
	return resp, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return data, nil
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseError reads a FastAPI-style error body. "detail" may be a string or a
// list of validation items with "msg".
func parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	e := &Error{Status: resp.StatusCode}

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		var s string
		var items []struct {
			Msg string `json:"msg"`
		}
		switch {
		case json.Unmarshal(body.Detail, &s) == nil && s != "":
			e.Detail = s
		case json.Unmarshal(body.Detail, &items) == nil && len(items) > 0:
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			e.Detail = strings.Join(msgs, "; ")
		case body.Message != "":
			e.Detail = body.Message
		}
	}
	return e
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
