package deadline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"duewatch/internal/logging"
)

// Synchronizer derives deadline records from the date fields observed on an
// asset. Each known category is reconciled independently: a set date creates
// or moves a deadline, a cleared date cancels it, an unchanged date is left
// alone.
type Synchronizer struct {
	store  *Store
	logger *slog.Logger
}

// SyncResult tallies the changes one reconciliation produced.
type SyncResult struct {
	Created   int
	Updated   int
	Cancelled int
	Skipped   int
}

// NewSynchronizer builds a synchronizer bound to the store.
func NewSynchronizer(store *Store, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "synchronizer"),
	}
}

// Sync reconciles all date fields on one asset inside a single transaction.
func (y *Synchronizer) Sync(ctx context.Context, dates AssetDates) (SyncResult, error) {
	var result SyncResult
	err := y.store.WithTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		result, txErr = y.SyncTx(ctx, tx, dates)
		return txErr
	})
	return result, err
}

// SaveAssetDates records an asset observation: the asset row's update stamp
// and the deadlines derived from its date fields commit or roll back
// together. A deactivated asset has every category treated as cleared, so
// its remaining active deadlines are cancelled.
func (y *Synchronizer) SaveAssetDates(ctx context.Context, dates AssetDates) (SyncResult, error) {
	var result SyncResult
	err := y.store.WithTx(ctx, func(tx *sql.Tx) error {
		active, err := stampAsset(ctx, tx, dates.AssetID)
		if err != nil {
			return err
		}
		if !active {
			cleared := make(map[string]*time.Time, len(dates.Dates))
			for category := range dates.Dates {
				cleared[category] = nil
			}
			dates.Dates = cleared
		}
		result, err = y.SyncTx(ctx, tx, dates)
		return err
	})
	return result, err
}

// SyncTx reconciles an asset's date fields against the deadlines table using
// the caller's transaction (or any DBTX).
func (y *Synchronizer) SyncTx(ctx context.Context, db DBTX, dates AssetDates) (SyncResult, error) {
	var result SyncResult
	for _, category := range sortedCategories(dates.Dates) {
		date := dates.Dates[category]
		changed, err := y.syncCategory(ctx, db, dates, category, date)
		if err != nil {
			return result, err
		}
		switch changed {
		case changeCreated:
			result.Created++
		case changeUpdated:
			result.Updated++
		case changeCancelled:
			result.Cancelled++
		case changeSkipped:
			result.Skipped++
		}
	}
	return result, nil
}

type change int

const (
	changeNone change = iota
	changeCreated
	changeUpdated
	changeCancelled
	changeSkipped
)

func (y *Synchronizer) syncCategory(ctx context.Context, db DBTX, dates AssetDates, category string, date *time.Time) (change, error) {
	dt, err := deadlineTypeByCategory(ctx, db, category)
	if err != nil {
		if errors.Is(err, ErrNoRow) {
			y.logger.Warn("unknown deadline category, skipping",
				logging.String(logging.FieldCategory, category),
				logging.Int64(logging.FieldAssetID, dates.AssetID))
			return changeSkipped, nil
		}
		return changeNone, err
	}

	active, err := activeDeadlines(ctx, db, dates.AssetID, dt.ID)
	if err != nil {
		return changeNone, err
	}
	if len(active) > 1 {
		y.logger.Warn("multiple active deadlines for asset and type, using oldest",
			logging.Int64(logging.FieldAssetID, dates.AssetID),
			logging.String(logging.FieldCategory, category),
			logging.Int("count", len(active)))
	}

	switch {
	case date == nil && len(active) == 0:
		return changeNone, nil

	case date == nil:
		note := auditNote(fmt.Sprintf("cancelled: %s date cleared on asset", category))
		if err := cancelDeadline(ctx, db, active[0].ID, note); err != nil {
			return changeNone, err
		}
		y.logger.Info("deadline cancelled",
			logging.Int64(logging.FieldDeadlineID, active[0].ID),
			logging.String(logging.FieldCategory, category))
		return changeCancelled, nil

	case len(active) == 0:
		id, err := insertDeadline(ctx, db, Deadline{
			OwnerID:        dates.OwnerID,
			AssetID:        dates.AssetID,
			TypeID:         dt.ID,
			ExpirationDate: *date,
			Note:           auditNote(fmt.Sprintf("created from asset %s date", category)),
		})
		if err != nil {
			return changeNone, err
		}
		y.logger.Info("deadline created",
			logging.Int64(logging.FieldDeadlineID, id),
			logging.String(logging.FieldCategory, category),
			logging.String("expiration", date.Format(time.DateOnly)))
		return changeCreated, nil

	case sameDate(active[0].ExpirationDate, *date):
		return changeNone, nil

	default:
		note := auditNote(fmt.Sprintf("expiration moved %s -> %s",
			active[0].ExpirationDate.Format(time.DateOnly), date.Format(time.DateOnly)))
		if err := updateDeadlineExpiration(ctx, db, active[0].ID, *date, note); err != nil {
			return changeNone, err
		}
		y.logger.Info("deadline rescheduled",
			logging.Int64(logging.FieldDeadlineID, active[0].ID),
			logging.String(logging.FieldCategory, category),
			logging.String("expiration", date.Format(time.DateOnly)))
		return changeUpdated, nil
	}
}

func stampAsset(ctx context.Context, db DBTX, id int64) (bool, error) {
	row := db.QueryRowContext(ctx, "SELECT active FROM assets WHERE id = ?", id)
	var active int
	if err := row.Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNoRow
		}
		return false, fmt.Errorf("scan asset: %w", err)
	}
	if _, err := db.ExecContext(
		ctx,
		"UPDATE assets SET updated_at = ? WHERE id = ?",
		timestamp(time.Now()), id,
	); err != nil {
		return false, fmt.Errorf("stamp asset: %w", err)
	}
	return active != 0, nil
}

func deadlineTypeByCategory(ctx context.Context, db DBTX, category string) (*DeadlineType, error) {
	row := db.QueryRowContext(
		ctx,
		"SELECT id, category, label, active FROM deadline_types WHERE category = ?",
		category,
	)
	var (
		dt     DeadlineType
		active int
	)
	if err := row.Scan(&dt.ID, &dt.Category, &dt.Label, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRow
		}
		return nil, fmt.Errorf("scan deadline type: %w", err)
	}
	dt.Active = active != 0
	return &dt, nil
}

func sortedCategories(dates map[string]*time.Time) []string {
	categories := make([]string, 0, len(dates))
	for category := range dates {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

func sameDate(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func auditNote(message string) string {
	return fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.DateOnly), message)
}
