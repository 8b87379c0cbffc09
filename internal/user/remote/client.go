// Package remote implements the user.Directory interface against the
// directory's JSON-over-HTTP protocol. Every call is a single
// round-trip authenticated with a bearer token; failures are not retried
// here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sartainstudios/authentication-api/internal/audit"
	"github.com/sartainstudios/authentication-api/internal/user"
)

const defaultTimeout = 10 * time.Second

// Directory protocol paths, relative to the base URL.
const (
	pathCredentialsValid = "/user/credentials/valid"
	pathByUsername       = "/user/username/"
	pathUser             = "/user"
)

// Envelope is the response wrapper the directory puts around every
// payload.
type Envelope struct {
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// Client talks to the user directory over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a directory client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote: directory base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ValidateCredentials implements user.Directory.
func (c *Client) ValidateCredentials(ctx context.Context, creds user.Credentials, token string) (bool, error) {
	result, err := c.call(ctx, http.MethodPost, pathCredentialsValid, creds, token)
	if err != nil {
		return false, err
	}
	return decodeBool(result)
}

// ResolveUserID implements user.Directory.
func (c *Client) ResolveUserID(ctx context.Context, username, token string) (string, error) {
	result, err := c.call(ctx, http.MethodGet, pathByUsername+url.PathEscape(username), nil, token)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(result, &id); err != nil || strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("remote: malformed user id in response: %w", user.ErrUnavailable)
	}
	return id, nil
}

// FetchRecord implements user.Directory.
func (c *Client) FetchRecord(ctx context.Context, id, token string) (user.Record, error) {
	result, err := c.call(ctx, http.MethodGet, pathUser+"/"+url.PathEscape(id), nil, token)
	if err != nil {
		return user.Record{}, err
	}
	var rec user.Record
	if err := json.Unmarshal(result, &rec); err != nil {
		return user.Record{}, fmt.Errorf("remote: malformed user record: %w", user.ErrUnavailable)
	}
	return rec, nil
}

// UpdateRecord implements user.Directory.
func (c *Client) UpdateRecord(ctx context.Context, rec user.Record, token string) error {
	_, err := c.call(ctx, http.MethodPatch, pathUser, rec, token)
	return err
}

// call performs one round-trip and returns the envelope's result payload.
func (c *Client) call(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if rid := audit.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %v: %w", method, path, err, user.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, user.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The directory refused our service token. Not an outage and not
		// a user error; surface it as its own failure.
		return nil, fmt.Errorf("remote: %s %s: directory rejected service token (status %d)", method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("remote: %s %s: status %d: %w", method, path, resp.StatusCode, user.ErrUnavailable)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("remote: decode response: %v: %w", err, user.ErrUnavailable)
	}
	return env.Result, nil
}

// decodeBool accepts both a JSON bool and the directory's legacy
// stringly-typed "true"/"false" result.
func decodeBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		if err == nil {
			return parsed, nil
		}
	}
	return false, fmt.Errorf("remote: malformed validity result: %w", user.ErrUnavailable)
}
