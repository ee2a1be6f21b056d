package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"duewatch/internal/config"
	"duewatch/internal/faults"
)

// Deadline is one expiring deadline as reported by the upstream API.
type Deadline struct {
	DeadlineID     int64  `json:"deadline_id"`
	OwnerID        int64  `json:"owner_id"`
	OwnerName      string `json:"owner_name"`
	OwnerTaxID     string `json:"owner_tax_id"`
	ChannelID      string `json:"channel_id"`
	NotifyEnabled  bool   `json:"notify_enabled"`
	Category       string `json:"category"`
	Label          string `json:"label"`
	ExpirationDate string `json:"expiration_date"`
	DaysRemaining  int    `json:"days_remaining"`
}

// Client queries the upstream deadline API. A request rejected with 401
// triggers one token refresh and retry before the error surfaces.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  *TokenSource
}

// NewClient builds a client from the remote config section.
func NewClient(cfg *config.Config) *Client {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Remote.RequestTimeout) * time.Second,
	}
	return &Client{
		http:    httpClient,
		baseURL: cfg.Remote.BaseURL,
		tokens: NewTokenSource(
			httpClient,
			cfg.Remote.BaseURL,
			cfg.Remote.Username,
			cfg.Remote.Password,
			time.Duration(cfg.Remote.TokenTTL)*time.Second,
		),
	}
}

// ExpiringDeadlines fetches deadlines expiring within the given number of
// days.
func (c *Client) ExpiringDeadlines(ctx context.Context, days int) ([]Deadline, error) {
	var deadlines []Deadline
	path := "/api/deadlines/expiring?days=" + strconv.Itoa(days)
	if err := c.getJSON(ctx, path, &deadlines); err != nil {
		return nil, err
	}
	return deadlines, nil
}

// Health probes the upstream status endpoint.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	return c.getJSON(ctx, "/api/status", &status)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.authorizedGet(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked upstream. Refresh once and retry.
		resp.Body.Close()
		c.tokens.Invalidate()
		resp, err = c.authorizedGet(ctx, path)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return faults.Wrap(faults.ErrAuth, "remote", "get", "request rejected after token refresh", nil)
	case resp.StatusCode != http.StatusOK:
		return faults.Wrap(faults.ErrTransient, "remote", "get", fmt.Sprintf("%s returned status %d", path, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return faults.Wrap(faults.ErrTransient, "remote", "get", "decode response", err)
	}
	return nil
}

func (c *Client) authorizedGet(ctx context.Context, path string) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.ErrTransient, "remote", "get", "request failed", err)
	}
	return resp, nil
}
