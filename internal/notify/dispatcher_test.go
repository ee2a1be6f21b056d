package notify_test

import (
	"context"
	"errors"
	"testing"

	"duewatch/internal/config"
	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
	"duewatch/internal/testsupport"
)

func newDispatcher(t *testing.T, cfg *config.Config, store *deadline.Store, messenger notify.Messenger) *notify.Dispatcher {
	t.Helper()
	access := expiring.NewResilient(nil, expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired), logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	return notify.NewDispatcher(store, access, messenger, resolver, cfg.Dispatch.Thresholds, logging.NewNop())
}

func TestDispatcherSendsAndLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOperatorChannels("ops"))
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()

	owner := testsupport.SeedOwner(t, store, "Dispatch Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	d := testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 5)

	dispatcher := newDispatcher(t, cfg, store, messenger)
	summary, err := dispatcher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Checked != 1 || summary.Sent != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Source != expiring.SourceStore {
		t.Fatalf("source = %s", summary.Source)
	}

	if len(messenger.SentTo("ops")) != 1 || len(messenger.SentTo("owner-1")) != 1 {
		t.Fatalf("unexpected deliveries %+v", messenger.Sent())
	}

	history, err := store.DispatchHistory(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("DispatchHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 log entries, got %+v", history)
	}
	for _, entry := range history {
		if entry.Outcome != deadline.OutcomeSent || entry.ThresholdDays != 7 {
			t.Fatalf("unexpected entry %+v", entry)
		}
	}
}

func TestDispatcherSecondRunIsSilent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()

	owner := testsupport.SeedOwner(t, store, "Dispatch Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 5)

	dispatcher := newDispatcher(t, cfg, store, messenger)
	ctx := context.Background()

	first, err := dispatcher.Run(ctx)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Sent != 1 {
		t.Fatalf("first run summary %+v", first)
	}

	second, err := dispatcher.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Sent != 0 || second.Skipped != 1 {
		t.Fatalf("second run should dedup, got %+v", second)
	}
	if len(messenger.Sent()) != 1 {
		t.Fatalf("duplicate delivery happened: %+v", messenger.Sent())
	}
}

func TestDispatcherIsolatesDeliveryFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()
	messenger.FailChannel("owner-bad")

	ownerBad := testsupport.SeedOwner(t, store, "Bad Channel", "owner-bad")
	ownerGood := testsupport.SeedOwner(t, store, "Good Channel", "owner-good")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	assetBad := testsupport.SeedAsset(t, store, ownerBad.ID, "register-1")
	assetGood := testsupport.SeedAsset(t, store, ownerGood.ID, "register-2")
	dBad := testsupport.SeedDeadline(t, store, ownerBad.ID, assetBad.ID, dt.ID, 3)
	testsupport.SeedDeadline(t, store, ownerGood.ID, assetGood.ID, dt.ID, 3)

	dispatcher := newDispatcher(t, cfg, store, messenger)
	summary, err := dispatcher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Sent != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	history, err := store.DispatchHistory(context.Background(), dBad.ID)
	if err != nil {
		t.Fatalf("DispatchHistory: %v", err)
	}
	if len(history) != 1 || history[0].Outcome != deadline.OutcomeFailed || history[0].ErrorDetail == "" {
		t.Fatalf("failed attempt not recorded: %+v", history)
	}

	// The failure does not consume the dedup slot: a later run retries.
	messenger2 := testsupport.NewFakeMessenger()
	retry, err := newDispatcher(t, cfg, store, messenger2).Run(context.Background())
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if retry.Sent != 1 {
		t.Fatalf("expected retry to deliver the failed notice, got %+v", retry)
	}
	if len(messenger2.SentTo("owner-bad")) != 1 {
		t.Fatalf("retry deliveries %+v", messenger2.Sent())
	}
}

func TestDispatcherSkipsRecordWithoutRecipients(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()

	owner := testsupport.SeedOwner(t, store, "No Channel", "")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 2)

	dispatcher := newDispatcher(t, cfg, store, messenger)
	summary, err := dispatcher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Checked != 1 || summary.Skipped != 1 || summary.Sent != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

type flakyAccess struct {
	inner    expiring.Access
	failDays int
}

func (f *flakyAccess) ExpiringDeadlines(ctx context.Context, days int) ([]expiring.Record, error) {
	if days == f.failDays {
		return nil, errors.New("window unavailable")
	}
	return f.inner.ExpiringDeadlines(ctx, days)
}

func TestDispatcherSkipsFailedThresholdAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThresholds(3, 7, 14))
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()

	owner := testsupport.SeedOwner(t, store, "Dispatch Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 5)

	flaky := &flakyAccess{
		inner:    expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired),
		failDays: 7,
	}
	access := expiring.NewResilient(nil, flaky, logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	dispatcher := notify.NewDispatcher(store, access, messenger, resolver, cfg.Dispatch.Thresholds, logging.NewNop())

	summary, err := dispatcher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.FailedThresholds) != 1 || summary.FailedThresholds[0] != 7 {
		t.Fatalf("expected threshold 7 reported failed, got %+v", summary)
	}
	// The 14-day window still picks the deadline up.
	if summary.Sent != 1 {
		t.Fatalf("wider window should still dispatch, got %+v", summary)
	}
}

func TestDispatcherReportsFallbackForMixedRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThresholds(7, 14))
	store := testsupport.MustOpenStore(t, cfg)

	owner := testsupport.SeedOwner(t, store, "Dispatch Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 10)

	// The remote serves the 7-day window but dies on the 14-day one, which
	// falls back to the store mid-run.
	storeAccess := expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired)
	remoteAccess := &flakyAccess{inner: storeAccess, failDays: 14}
	access := expiring.NewResilient(remoteAccess, storeAccess, logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	dispatcher := notify.NewDispatcher(store, access, testsupport.NewFakeMessenger(), resolver, cfg.Dispatch.Thresholds, logging.NewNop())

	summary, err := dispatcher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.FailedThresholds) != 0 {
		t.Fatalf("fallback should absorb the remote failure, got %+v", summary)
	}
	if summary.Source != expiring.SourceStore {
		t.Fatalf("mixed run should report the store source, got %s", summary.Source)
	}
	if summary.Sent != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestDispatcherErrsWhenEveryThresholdFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThresholds(7))
	store := testsupport.MustOpenStore(t, cfg)

	flaky := &flakyAccess{
		inner:    expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired),
		failDays: 7,
	}
	access := expiring.NewResilient(nil, flaky, logging.NewNop())
	resolver := notify.NewResolver(cfg, logging.NewNop())
	dispatcher := notify.NewDispatcher(store, access, testsupport.NewFakeMessenger(), resolver, cfg.Dispatch.Thresholds, logging.NewNop())

	summary, err := dispatcher.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when no threshold could fetch")
	}
	if len(summary.FailedThresholds) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestDispatcherThresholdAudit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThresholds(3, 7, 14))
	store := testsupport.MustOpenStore(t, cfg)
	messenger := testsupport.NewFakeMessenger()

	owner := testsupport.SeedOwner(t, store, "Audit Co", "owner-1")
	asset := testsupport.SeedAsset(t, store, owner.ID, "register-1")
	dt := testsupport.SeedType(t, store, "fiscal", "Fiscalization")
	d := testsupport.SeedDeadline(t, store, owner.ID, asset.ID, dt.ID, 10)

	dispatcher := newDispatcher(t, cfg, store, messenger)
	if _, err := dispatcher.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	history, err := store.DispatchHistory(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("DispatchHistory: %v", err)
	}
	if len(history) != 1 || history[0].ThresholdDays != 14 {
		t.Fatalf("expected threshold 14 recorded, got %+v", history)
	}
}
