package expiring

import (
	"context"
	"log/slog"

	"duewatch/internal/logging"
)

// Resilient prefers the remote backend and falls back to the local store
// when the remote fails. The remote backend may be nil, in which case all
// reads go straight to the store.
type Resilient struct {
	remote Access
	store  Access
	logger *slog.Logger
}

// NewResilient composes the two backends.
func NewResilient(remote, store Access, logger *slog.Logger) *Resilient {
	return &Resilient{
		remote: remote,
		store:  store,
		logger: logging.NewComponentLogger(logger, "expiring"),
	}
}

// Fetch returns expiring deadlines together with the backend that served
// them. A remote failure is logged and absorbed as long as the store read
// succeeds.
func (r *Resilient) Fetch(ctx context.Context, days int) ([]Record, Source, error) {
	if r.remote != nil {
		records, err := r.remote.ExpiringDeadlines(ctx, days)
		if err == nil {
			return records, SourceRemote, nil
		}
		r.logger.Warn("remote read failed, falling back to store", logging.Error(err))
	}

	records, err := r.store.ExpiringDeadlines(ctx, days)
	if err != nil {
		return nil, SourceStore, err
	}
	return records, SourceStore, nil
}
