// Package expiring provides a single read surface for expiring deadlines
// regardless of where they come from: the upstream API when it is reachable,
// the local store otherwise.
package expiring

import (
	"context"
	"log/slog"
	"time"

	"duewatch/internal/deadline"
	"duewatch/internal/logging"
	"duewatch/internal/remote"
	"duewatch/internal/urgency"
)

// Source identifies which backend produced a result set.
type Source string

const (
	SourceRemote Source = "remote"
	SourceStore  Source = "store"
)

// Record is one expiring deadline in the normalized shape the dispatcher and
// CLI consume.
type Record struct {
	DeadlineID     int64
	OwnerID        int64
	OwnerName      string
	OwnerTaxID     string
	ChannelID      string
	NotifyEnabled  bool
	Category       string
	Label          string
	ExpirationDate time.Time
	DaysRemaining  int
	Tier           urgency.Tier
}

// Access fetches deadlines expiring within the given number of days.
type Access interface {
	ExpiringDeadlines(ctx context.Context, days int) ([]Record, error)
}

// StoreAccess reads expiring deadlines from the local store.
type StoreAccess struct {
	store          *deadline.Store
	includeExpired bool
	now            func() time.Time
}

// NewStoreAccess wraps the local store.
func NewStoreAccess(store *deadline.Store, includeExpired bool) *StoreAccess {
	return &StoreAccess{store: store, includeExpired: includeExpired, now: time.Now}
}

// ExpiringDeadlines implements Access against the local database.
func (a *StoreAccess) ExpiringDeadlines(ctx context.Context, days int) ([]Record, error) {
	today := a.now()
	rows, err := a.store.ExpiringWithin(ctx, days, a.includeExpired, today)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		remaining := urgency.DaysUntil(row.ExpirationDate, today)
		records = append(records, Record{
			DeadlineID:     row.DeadlineID,
			OwnerID:        row.OwnerID,
			OwnerName:      row.OwnerName,
			OwnerTaxID:     row.OwnerTaxID,
			ChannelID:      row.ChannelID,
			NotifyEnabled:  row.NotifyEnabled,
			Category:       row.Category,
			Label:          row.Label,
			ExpirationDate: row.ExpirationDate,
			DaysRemaining:  remaining,
			Tier:           urgency.ClassifyDays(remaining),
		})
	}
	return records, nil
}

// RemoteAccess reads expiring deadlines from the upstream API.
type RemoteAccess struct {
	client *remote.Client
	logger *slog.Logger
}

// NewRemoteAccess wraps the upstream client.
func NewRemoteAccess(client *remote.Client, logger *slog.Logger) *RemoteAccess {
	return &RemoteAccess{
		client: client,
		logger: logging.NewComponentLogger(logger, "expiring"),
	}
}

// ExpiringDeadlines implements Access against the upstream API. A record
// whose expiration date cannot be parsed is dropped, not passed along with
// a date that disagrees with its day count.
func (a *RemoteAccess) ExpiringDeadlines(ctx context.Context, days int) ([]Record, error) {
	deadlines, err := a.client.ExpiringDeadlines(ctx, days)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(deadlines))
	for _, d := range deadlines {
		expiration, parseErr := time.Parse(time.DateOnly, d.ExpirationDate)
		if parseErr != nil {
			a.logger.Warn("dropping record with malformed expiration date",
				logging.Int64(logging.FieldDeadlineID, d.DeadlineID),
				logging.String("expiration", d.ExpirationDate),
				logging.Error(parseErr))
			continue
		}
		records = append(records, Record{
			DeadlineID:     d.DeadlineID,
			OwnerID:        d.OwnerID,
			OwnerName:      d.OwnerName,
			OwnerTaxID:     d.OwnerTaxID,
			ChannelID:      d.ChannelID,
			NotifyEnabled:  d.NotifyEnabled,
			Category:       d.Category,
			Label:          d.Label,
			ExpirationDate: expiration,
			DaysRemaining:  d.DaysRemaining,
			Tier:           urgency.ClassifyDays(d.DaysRemaining),
		})
	}
	return records, nil
}
