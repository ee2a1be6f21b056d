package deadline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"duewatch/internal/urgency"
)

const deadlineColumns = "id, owner_id, asset_id, type_id, expiration_date, status, note, created_at, updated_at"

// CreateDeadline inserts a deadline and returns the stored record.
func (s *Store) CreateDeadline(ctx context.Context, d Deadline) (*Deadline, error) {
	id, err := insertDeadline(ctx, s.db, d)
	if err != nil {
		return nil, err
	}
	return s.GetDeadline(ctx, id)
}

// GetDeadline fetches a deadline by identifier.
func (s *Store) GetDeadline(ctx context.Context, id int64) (*Deadline, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+deadlineColumns+" FROM deadlines WHERE id = ?", id)
	return scanDeadline(row)
}

// ActiveDeadlines returns the active deadlines for an asset and type, oldest
// first. A healthy database yields at most one row.
func (s *Store) ActiveDeadlines(ctx context.Context, assetID, typeID int64) ([]Deadline, error) {
	return activeDeadlines(ctx, s.db, assetID, typeID)
}

// CancelDeadline marks a deadline cancelled and appends an audit note.
func (s *Store) CancelDeadline(ctx context.Context, id int64, note string) error {
	return cancelDeadline(ctx, s.db, id, note)
}

// UpdateDeadlineExpiration moves a deadline's expiration date and appends an
// audit note.
func (s *Store) UpdateDeadlineExpiration(ctx context.Context, id int64, expiration time.Time, note string) error {
	return updateDeadlineExpiration(ctx, s.db, id, expiration, note)
}

// ExpiringWithin returns active deadlines whose expiration falls within the
// next `days` calendar days, joined with owner and type details. Expired
// deadlines are included only when includeExpired is set. Rows are ordered by
// expiration date so the most urgent come first.
func (s *Store) ExpiringWithin(ctx context.Context, days int, includeExpired bool, today time.Time) ([]ExpiringRow, error) {
	cutoff := today.AddDate(0, 0, days)
	query := `SELECT d.id, d.owner_id, o.name, o.tax_id, o.channel_id, o.notify_enabled,
            t.category, t.label, d.expiration_date
        FROM deadlines d
        JOIN owners o ON o.id = d.owner_id
        JOIN deadline_types t ON t.id = d.type_id
        WHERE d.status = 'active' AND o.active = 1 AND d.expiration_date <= ?`
	args := []any{dateString(cutoff)}
	if !includeExpired {
		query += " AND d.expiration_date >= ?"
		args = append(args, dateString(today))
	}
	query += " ORDER BY d.expiration_date, d.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expiring deadlines: %w", err)
	}
	defer rows.Close()

	var results []ExpiringRow
	for rows.Next() {
		var (
			row           ExpiringRow
			notifyEnabled int
			expirationRaw string
		)
		if err := rows.Scan(
			&row.DeadlineID, &row.OwnerID, &row.OwnerName, &row.OwnerTaxID,
			&row.ChannelID, &notifyEnabled, &row.Category, &row.Label, &expirationRaw,
		); err != nil {
			return nil, fmt.Errorf("scan expiring row: %w", err)
		}
		row.NotifyEnabled = notifyEnabled != 0
		row.ExpirationDate = parseDate(expirationRaw)
		results = append(results, row)
	}
	return results, rows.Err()
}

// TierCounts tallies all active deadlines by urgency tier relative to today.
func (s *Store) TierCounts(ctx context.Context, today time.Time) (map[urgency.Tier]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT expiration_date FROM deadlines WHERE status = 'active'")
	if err != nil {
		return nil, fmt.Errorf("query active deadlines: %w", err)
	}
	defer rows.Close()

	counts := make(map[urgency.Tier]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan expiration: %w", err)
		}
		counts[urgency.Classify(parseDate(raw), today)]++
	}
	return counts, rows.Err()
}

func insertDeadline(ctx context.Context, db DBTX, d Deadline) (int64, error) {
	now := timestamp(time.Now())
	status := d.Status
	if status == "" {
		status = StatusActive
	}
	res, err := db.ExecContext(
		ctx,
		`INSERT INTO deadlines (owner_id, asset_id, type_id, expiration_date, status, note, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.OwnerID, nullableID(d.AssetID), d.TypeID,
		dateString(d.ExpirationDate), string(status), d.Note,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert deadline: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func activeDeadlines(ctx context.Context, db DBTX, assetID, typeID int64) ([]Deadline, error) {
	rows, err := db.QueryContext(
		ctx,
		"SELECT "+deadlineColumns+" FROM deadlines WHERE asset_id = ? AND type_id = ? AND status = 'active' ORDER BY id",
		assetID, typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query active deadlines: %w", err)
	}
	defer rows.Close()

	var deadlines []Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

func cancelDeadline(ctx context.Context, db DBTX, id int64, note string) error {
	res, err := db.ExecContext(
		ctx,
		`UPDATE deadlines SET status = 'cancelled',
            note = CASE WHEN note = '' THEN ? ELSE note || char(10) || ? END,
            updated_at = ?
         WHERE id = ? AND status = 'active'`,
		note, note, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("cancel deadline: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoRow
	}
	return nil
}

func updateDeadlineExpiration(ctx context.Context, db DBTX, id int64, expiration time.Time, note string) error {
	res, err := db.ExecContext(
		ctx,
		`UPDATE deadlines SET expiration_date = ?,
            note = CASE WHEN note = '' THEN ? ELSE note || char(10) || ? END,
            updated_at = ?
         WHERE id = ? AND status = 'active'`,
		dateString(expiration), note, note, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update deadline expiration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoRow
	}
	return nil
}

func scanDeadline(scanner interface{ Scan(dest ...any) error }) (*Deadline, error) {
	var (
		d             Deadline
		assetID       sql.NullInt64
		expirationRaw string
		statusRaw     string
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&d.ID, &d.OwnerID, &assetID, &d.TypeID,
		&expirationRaw, &statusRaw, &d.Note, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRow
		}
		return nil, fmt.Errorf("scan deadline: %w", err)
	}
	if assetID.Valid {
		d.AssetID = assetID.Int64
	}
	d.ExpirationDate = parseDate(expirationRaw)
	d.Status = Status(statusRaw)
	d.CreatedAt = parseTimestamp(createdRaw)
	d.UpdatedAt = parseTimestamp(updatedRaw)
	return &d, nil
}
