package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyDispatched is returned when a successful send for the same
// deadline and recipient was already recorded.
var ErrAlreadyDispatched = errors.New("already dispatched")

// errorDetailMax caps the persisted failure detail so oversized upstream
// errors do not bloat the log.
const errorDetailMax = 500

// WasNotified reports whether a successful send is already on record for the
// deadline and recipient.
func (s *Store) WasNotified(ctx context.Context, deadlineID int64, recipientID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(1) FROM dispatch_log WHERE deadline_id = ? AND recipient_id = ? AND outcome = 'sent'",
		deadlineID, recipientID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query dispatch log: %w", err)
	}
	return count > 0, nil
}

// RecordDispatch appends a dispatch log entry. Recording a second successful
// send for the same deadline and recipient returns ErrAlreadyDispatched; the
// log keeps the original row. Failed attempts may accumulate freely.
func (s *Store) RecordDispatch(ctx context.Context, entry DispatchEntry) error {
	detail := entry.ErrorDetail
	if len(detail) > errorDetailMax {
		detail = detail[:errorDetailMax]
	}
	sentAt := entry.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dispatch_log (deadline_id, recipient_id, threshold_days, outcome, error_detail, sent_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.DeadlineID, entry.RecipientID, entry.ThresholdDays,
		string(entry.Outcome), detail, timestamp(sentAt),
	)
	if err != nil {
		if entry.Outcome == OutcomeSent && isUniqueViolation(err) {
			return ErrAlreadyDispatched
		}
		return fmt.Errorf("insert dispatch entry: %w", err)
	}
	return nil
}

// DispatchHistory returns all log entries for a deadline, oldest first.
func (s *Store) DispatchHistory(ctx context.Context, deadlineID int64) ([]DispatchEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, deadline_id, recipient_id, threshold_days, outcome, error_detail, sent_at
         FROM dispatch_log WHERE deadline_id = ? ORDER BY id`,
		deadlineID,
	)
	if err != nil {
		return nil, fmt.Errorf("query dispatch history: %w", err)
	}
	defer rows.Close()

	var entries []DispatchEntry
	for rows.Next() {
		var (
			entry      DispatchEntry
			outcomeRaw string
			sentRaw    string
		)
		if err := rows.Scan(
			&entry.ID, &entry.DeadlineID, &entry.RecipientID,
			&entry.ThresholdDays, &outcomeRaw, &entry.ErrorDetail, &sentRaw,
		); err != nil {
			return nil, fmt.Errorf("scan dispatch entry: %w", err)
		}
		entry.Outcome = Outcome(outcomeRaw)
		if parsed, err := time.Parse(time.RFC3339Nano, sentRaw); err == nil {
			entry.SentAt = parsed
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
