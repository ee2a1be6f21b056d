package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"duewatch/internal/config"
)

// daemonClient talks to the embedded API of a running duewatchd.
type daemonClient struct {
	http  *http.Client
	base  string
	token string
}

func newDaemonClient(cfg *config.Config) *daemonClient {
	return &daemonClient{
		http:  &http.Client{Timeout: 10 * time.Second},
		base:  "http://" + cfg.Paths.APIBind,
		token: cfg.Paths.APIToken,
	}
}

type lastRun struct {
	RunID      string    `json:"run_id"`
	FinishedAt string    `json:"finished_at"`
	Summary    runResult `json:"summary"`
	Err        string    `json:"error"`
}

type daemonStatus struct {
	Status       string   `json:"status"`
	Running      bool     `json:"running"`
	RunActive    bool     `json:"run_active"`
	NextRun      string   `json:"next_run"`
	LastRun      *lastRun `json:"last_run"`
	DatabasePath string   `json:"database_path"`
}

func (c *daemonClient) status(ctx context.Context) (*daemonStatus, error) {
	var status daemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type runResult struct {
	Source           string `json:"source"`
	Checked          int    `json:"checked"`
	Sent             int    `json:"sent"`
	Skipped          int    `json:"skipped"`
	Failed           int    `json:"failed"`
	FailedThresholds []int  `json:"failed_thresholds"`
}

func (c *daemonClient) run(ctx context.Context) (*runResult, error) {
	var result runResult
	if err := c.do(ctx, http.MethodPost, "/api/run", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *daemonClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("a dispatch run is already in progress")
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, detail)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
