package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"duewatch/internal/config"
	"duewatch/internal/daemon"
	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
	"duewatch/internal/scheduler"
	"duewatch/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *deadline.Store, *testsupport.FakeMessenger) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()
	access := expiring.NewResilient(nil, expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired), logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	dispatcher := notify.NewDispatcher(store, access, messenger, resolver, cfg.Dispatch.Thresholds, logging.NewNop())
	sched := scheduler.New(cfg, store, dispatcher, messenger, nil, logging.NewNop())

	d, err := daemon.New(cfg, store, sched, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d, store, messenger
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, _ := startDaemon(t, cfg)
	if !d.Status().Running {
		t.Fatal("daemon not reported running")
	}

	access := expiring.NewResilient(nil, expiring.NewStoreAccess(store, false), logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	dispatcher := notify.NewDispatcher(store, access, testsupport.NewFakeMessenger(), resolver, cfg.Dispatch.Thresholds, logging.NewNop())
	sched := scheduler.New(cfg, store, dispatcher, testsupport.NewFakeMessenger(), nil, logging.NewNop())

	second, err := daemon.New(cfg, store, sched, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := startDaemon(t, cfg)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", d.APIAddr()))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Running bool   `json:"running"`
		NextRun string `json:"next_run"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.Status != "ok" || !payload.Running {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if _, err := time.Parse(time.RFC3339, payload.NextRun); err != nil {
		t.Fatalf("next_run not RFC3339: %v", err)
	}
}

func TestRunEndpointDispatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, messenger := startDaemon(t, cfg)

	owner := testsupport.SeedOwner(t, store, "API Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 5)

	resp, err := http.Post(fmt.Sprintf("http://%s/api/run", d.APIAddr()), "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload struct {
		Sent   int    `json:"sent"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if payload.Sent != 1 || payload.Source != "store" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(messenger.SentTo("owner-1")) != 1 {
		t.Fatalf("notification not delivered: %+v", messenger.Sent())
	}
}

func TestExpiringEndpointServesWireShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, _ := startDaemon(t, cfg)

	owner := testsupport.SeedOwner(t, store, "Wire Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 5)
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 60)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/deadlines/expiring?days=14", d.APIAddr()))
	if err != nil {
		t.Fatalf("GET /api/deadlines/expiring: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload []struct {
		DeadlineID    int64  `json:"deadline_id"`
		OwnerName     string `json:"owner_name"`
		DaysRemaining int    `json:"days_remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode expiring: %v", err)
	}
	if len(payload) != 1 || payload[0].OwnerName != "Wire Co" || payload[0].DaysRemaining != 5 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestExpiringEndpointRejectsBadDays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := startDaemon(t, cfg)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/deadlines/expiring?days=soon", d.APIAddr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPITokenEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	d, _, _ := startDaemon(t, cfg)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", d.APIAddr()))
	if err != nil {
		t.Fatalf("GET without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/api/status", d.APIAddr()), nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
