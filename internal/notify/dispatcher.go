package notify

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
)

// Summary tallies one dispatch run. FailedThresholds lists day windows whose
// data could not be fetched on either path; those were skipped entirely.
type Summary struct {
	Checked          int             `json:"checked"`
	Sent             int             `json:"sent"`
	Skipped          int             `json:"skipped"`
	Failed           int             `json:"failed"`
	FailedThresholds []int           `json:"failed_thresholds,omitempty"`
	Source           expiring.Source `json:"source"`
}

// Dispatcher walks expiring deadlines and delivers one notification per
// deadline per recipient, recording every attempt in the dispatch log.
type Dispatcher struct {
	store      *deadline.Store
	access     *expiring.Resilient
	messenger  Messenger
	resolver   *Resolver
	thresholds []int
	logger     *slog.Logger
}

// NewDispatcher wires the dispatch pipeline together. Thresholds are the
// day counts at which a deadline becomes notifiable; each one is fetched
// and dispatched independently, tightest first.
func NewDispatcher(store *deadline.Store, access *expiring.Resilient, messenger Messenger, resolver *Resolver, thresholds []int, logger *slog.Logger) *Dispatcher {
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)
	return &Dispatcher{
		store:      store,
		access:     access,
		messenger:  messenger,
		resolver:   resolver,
		thresholds: sorted,
		logger:     logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Run performs one dispatch pass over every configured threshold. Each
// threshold fetches independently: a failure that prevents fetching a whole
// window skips that threshold, reports it in FailedThresholds, and the rest
// still dispatch. Individual delivery failures are isolated: they are
// logged, recorded as failed attempts, and counted, but never abort the
// run. The returned error is non-nil only when no threshold could fetch at
// all.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if len(d.thresholds) == 0 {
		return summary, nil
	}

	// Ascending order means a deadline is handled at the tightest threshold
	// that covers it; wider windows re-return it and are skipped here.
	handled := make(map[int64]struct{})
	var lastErr error
	for _, threshold := range d.thresholds {
		records, source, err := d.access.Fetch(ctx, threshold)
		if err != nil {
			d.logger.Error("fetch failed, skipping threshold",
				logging.Int(logging.FieldThreshold, threshold),
				logging.Error(err))
			summary.FailedThresholds = append(summary.FailedThresholds, threshold)
			lastErr = err
			continue
		}
		// One fallback anywhere marks the whole run as store-sourced, so
		// the digest's source annotation is accurate for mixed runs.
		if summary.Source == "" || source == expiring.SourceStore {
			summary.Source = source
		}

		for _, record := range records {
			if _, done := handled[record.DeadlineID]; done {
				continue
			}
			handled[record.DeadlineID] = struct{}{}
			summary.Checked++

			recipients := d.resolver.Resolve(record)
			if len(recipients) == 0 {
				summary.Skipped++
				continue
			}
			text := Message(record)
			for _, recipient := range recipients {
				d.deliver(ctx, record, recipient, threshold, text, &summary)
			}
		}
	}

	if len(summary.FailedThresholds) == len(d.thresholds) {
		return summary, lastErr
	}

	d.logger.Info("dispatch run complete",
		logging.String(logging.FieldSource, string(summary.Source)),
		logging.Int("checked", summary.Checked),
		logging.Int("sent", summary.Sent),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (d *Dispatcher) deliver(ctx context.Context, record expiring.Record, recipient Recipient, threshold int, text string, summary *Summary) {
	notified, err := d.store.WasNotified(ctx, record.DeadlineID, recipient.ID)
	if err != nil {
		d.logger.Error("dispatch log read failed",
			logging.Int64(logging.FieldDeadlineID, record.DeadlineID),
			logging.Error(err))
		summary.Failed++
		return
	}
	if notified {
		summary.Skipped++
		return
	}

	if sendErr := d.messenger.Send(ctx, recipient.ChannelID, text); sendErr != nil {
		d.logger.Warn("notification delivery failed",
			logging.Int64(logging.FieldDeadlineID, record.DeadlineID),
			logging.String(logging.FieldChannel, recipient.ChannelID),
			logging.Error(sendErr))
		summary.Failed++
		if logErr := d.store.RecordDispatch(ctx, deadline.DispatchEntry{
			DeadlineID:    record.DeadlineID,
			RecipientID:   recipient.ID,
			ThresholdDays: threshold,
			Outcome:       deadline.OutcomeFailed,
			ErrorDetail:   sendErr.Error(),
		}); logErr != nil {
			d.logger.Error("recording failed attempt", logging.Error(logErr))
		}
		return
	}

	err = d.store.RecordDispatch(ctx, deadline.DispatchEntry{
		DeadlineID:    record.DeadlineID,
		RecipientID:   recipient.ID,
		ThresholdDays: threshold,
		Outcome:       deadline.OutcomeSent,
	})
	switch {
	case errors.Is(err, deadline.ErrAlreadyDispatched):
		// Lost a race with a concurrent run; the message went out either way.
		summary.Skipped++
	case err != nil:
		d.logger.Error("recording sent notification",
			logging.Int64(logging.FieldDeadlineID, record.DeadlineID),
			logging.Error(err))
		summary.Failed++
	default:
		summary.Sent++
		d.logger.Info("notification sent",
			logging.Int64(logging.FieldDeadlineID, record.DeadlineID),
			logging.String(logging.FieldChannel, recipient.ChannelID),
			logging.String(logging.FieldTier, string(record.Tier)),
			logging.Int(logging.FieldThreshold, threshold))
	}
}
