// Package remote talks to an upstream deadline API: bearer-token login,
// cached token reuse, and the expiring-deadlines query the dispatcher
// prefers over local store reads.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"duewatch/internal/faults"
)

// tokenExpiryBuffer refreshes tokens slightly early so an in-flight request
// does not ride an expiring token.
const tokenExpiryBuffer = 60 * time.Second

// TokenSource obtains and caches bearer tokens from the upstream login
// endpoint. It is safe for concurrent use.
type TokenSource struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	ttl      time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource builds a token source for the given API credentials.
func NewTokenSource(client *http.Client, baseURL, username, password string, ttl time.Duration) *TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSource{
		client:   client,
		baseURL:  baseURL,
		username: username,
		password: password,
		ttl:      ttl,
	}
}

// Token returns a valid bearer token, logging in when the cached one is
// missing or near expiry.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expires.Add(-tokenExpiryBuffer)) {
		return ts.token, nil
	}
	return ts.loginLocked(ctx)
}

// Invalidate drops the cached token so the next call logs in again. Called
// after the upstream rejects a request with 401.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expires = time.Time{}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (ts *TokenSource) loginLocked(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{Username: ts.username, Password: ts.password})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", faults.Wrap(faults.ErrTransient, "remote", "login", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", faults.Wrap(faults.ErrAuth, "remote", "login", fmt.Sprintf("credentials rejected (status %d)", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return "", faults.Wrap(faults.ErrTransient, "remote", "login", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", faults.Wrap(faults.ErrTransient, "remote", "login", "decode response", err)
	}
	if payload.Token == "" {
		return "", faults.Wrap(faults.ErrAuth, "remote", "login", "empty token in response", nil)
	}

	ttl := ts.ttl
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}
	ts.token = payload.Token
	ts.expires = time.Now().Add(ttl)
	return ts.token, nil
}
