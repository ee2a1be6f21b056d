package deadline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoRow is returned when a lookup matches nothing.
var ErrNoRow = errors.New("no matching row")

const ownerColumns = "id, name, tax_id, channel_id, notify_enabled, active, created_at, updated_at"

// CreateOwner inserts an owner and returns the stored record.
func (s *Store) CreateOwner(ctx context.Context, owner Owner) (*Owner, error) {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO owners (name, tax_id, channel_id, notify_enabled, active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner.Name, owner.TaxID, owner.ChannelID,
		boolToInt(owner.NotifyEnabled), boolToInt(owner.Active),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetOwner(ctx, id)
}

// GetOwner fetches an owner by identifier.
func (s *Store) GetOwner(ctx context.Context, id int64) (*Owner, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ownerColumns+" FROM owners WHERE id = ?", id)
	return scanOwner(row)
}

// UpdateOwnerChannel sets the messaging channel and opt-in flag on an owner.
func (s *Store) UpdateOwnerChannel(ctx context.Context, id int64, channelID string, notifyEnabled bool) error {
	res, err := s.db.ExecContext(
		ctx,
		"UPDATE owners SET channel_id = ?, notify_enabled = ?, updated_at = ? WHERE id = ?",
		channelID, boolToInt(notifyEnabled), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update owner channel: %w", err)
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

// ListOwners returns owners ordered by name. When activeOnly is set, inactive
// owners are excluded.
func (s *Store) ListOwners(ctx context.Context, activeOnly bool) ([]Owner, error) {
	query := "SELECT " + ownerColumns + " FROM owners"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		owner, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, *owner)
	}
	return owners, rows.Err()
}

// CreateAsset inserts an asset and returns the stored record.
func (s *Store) CreateAsset(ctx context.Context, asset Asset) (*Asset, error) {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO assets (owner_id, name, serial, active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		asset.OwnerID, asset.Name, asset.Serial, boolToInt(asset.Active), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAsset(ctx, id)
}

// GetAsset fetches an asset by identifier.
func (s *Store) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT id, owner_id, name, serial, active, created_at, updated_at FROM assets WHERE id = ?",
		id,
	)
	var (
		asset      Asset
		active     int
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := row.Scan(&asset.ID, &asset.OwnerID, &asset.Name, &asset.Serial, &active, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRow
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	asset.Active = active != 0
	asset.CreatedAt = parseTimestamp(createdRaw)
	asset.UpdatedAt = parseTimestamp(updatedRaw)
	return &asset, nil
}

// ListAssetsByOwner returns an owner's assets ordered by name.
func (s *Store) ListAssetsByOwner(ctx context.Context, ownerID int64) ([]Asset, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT id, owner_id, name, serial, active, created_at, updated_at FROM assets WHERE owner_id = ? ORDER BY name, id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var (
			asset      Asset
			active     int
			createdRaw sql.NullString
			updatedRaw sql.NullString
		)
		if err := rows.Scan(&asset.ID, &asset.OwnerID, &asset.Name, &asset.Serial, &active, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		asset.Active = active != 0
		asset.CreatedAt = parseTimestamp(createdRaw)
		asset.UpdatedAt = parseTimestamp(updatedRaw)
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// EnsureDeadlineType inserts a deadline type if the category is new, and
// returns the stored record either way.
func (s *Store) EnsureDeadlineType(ctx context.Context, category, label string) (*DeadlineType, error) {
	if _, err := s.db.ExecContext(
		ctx,
		"INSERT INTO deadline_types (category, label, active) VALUES (?, ?, 1) ON CONFLICT(category) DO NOTHING",
		category, label,
	); err != nil {
		return nil, fmt.Errorf("ensure deadline type: %w", err)
	}
	return s.DeadlineTypeByCategory(ctx, category)
}

// DeadlineTypeByCategory fetches a deadline type by its category key.
func (s *Store) DeadlineTypeByCategory(ctx context.Context, category string) (*DeadlineType, error) {
	row := s.db.QueryRowContext(
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

// ListDeadlineTypes returns all deadline types ordered by category.
func (s *Store) ListDeadlineTypes(ctx context.Context) ([]DeadlineType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, category, label, active FROM deadline_types ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("list deadline types: %w", err)
	}
	defer rows.Close()

	var types []DeadlineType
	for rows.Next() {
		var (
			dt     DeadlineType
			active int
		)
		if err := rows.Scan(&dt.ID, &dt.Category, &dt.Label, &active); err != nil {
			return nil, fmt.Errorf("scan deadline type: %w", err)
		}
		dt.Active = active != 0
		types = append(types, dt)
	}
	return types, rows.Err()
}

func scanOwner(scanner interface{ Scan(dest ...any) error }) (*Owner, error) {
	var (
		owner         Owner
		notifyEnabled int
		active        int
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&owner.ID, &owner.Name, &owner.TaxID, &owner.ChannelID,
		&notifyEnabled, &active, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRow
		}
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	owner.NotifyEnabled = notifyEnabled != 0
	owner.Active = active != 0
	owner.CreatedAt = parseTimestamp(createdRaw)
	owner.UpdatedAt = parseTimestamp(updatedRaw)
	return &owner, nil
}
