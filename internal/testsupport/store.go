package testsupport

import (
	"context"
	"testing"
	"time"

	"duewatch/internal/config"
	"duewatch/internal/deadline"
)

// MustOpenStore opens a deadline.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *deadline.Store {
	t.Helper()

	store, err := deadline.Open(cfg)
	if err != nil {
		t.Fatalf("deadline.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedOwner creates an owner for tests.
func SeedOwner(t testing.TB, store *deadline.Store, name, channelID string) *deadline.Owner {
	t.Helper()

	owner, err := store.CreateOwner(context.Background(), deadline.Owner{
		Name:          name,
		TaxID:         "TAX-" + name,
		ChannelID:     channelID,
		NotifyEnabled: channelID != "",
		Active:        true,
	})
	if err != nil {
		t.Fatalf("store.CreateOwner: %v", err)
	}
	return owner
}

// SeedAsset creates an asset for tests.
func SeedAsset(t testing.TB, store *deadline.Store, ownerID int64, name string) *deadline.Asset {
	t.Helper()

	asset, err := store.CreateAsset(context.Background(), deadline.Asset{
		OwnerID: ownerID,
		Name:    name,
		Serial:  "SN-" + name,
		Active:  true,
	})
	if err != nil {
		t.Fatalf("store.CreateAsset: %v", err)
	}
	return asset
}

// SeedType ensures a deadline type exists for tests.
func SeedType(t testing.TB, store *deadline.Store, category, label string) *deadline.DeadlineType {
	t.Helper()

	dt, err := store.EnsureDeadlineType(context.Background(), category, label)
	if err != nil {
		t.Fatalf("store.EnsureDeadlineType: %v", err)
	}
	return dt
}

// SeedDeadline creates an active deadline expiring the given number of days
// from now.
func SeedDeadline(t testing.TB, store *deadline.Store, ownerID, assetID, typeID int64, daysFromNow int) *deadline.Deadline {
	t.Helper()

	d, err := store.CreateDeadline(context.Background(), deadline.Deadline{
		OwnerID:        ownerID,
		AssetID:        assetID,
		TypeID:         typeID,
		ExpirationDate: time.Now().AddDate(0, 0, daysFromNow),
	})
	if err != nil {
		t.Fatalf("store.CreateDeadline: %v", err)
	}
	return d
}
