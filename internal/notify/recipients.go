package notify

import (
	"log/slog"

	"duewatch/internal/config"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
)

// Recipient kinds.
const (
	KindOperator = "operator"
	KindOwner    = "owner"
)

// Recipient is one delivery target for a deadline notification. ID is the
// stable identifier used for dedup in the dispatch log; for channel-based
// messaging it equals the channel.
type Recipient struct {
	ID        string
	ChannelID string
	Kind      string
}

// Resolver expands one expiring deadline into its delivery targets:
// operator channels first in configured order, then the owner's own channel
// when present and opted in.
type Resolver struct {
	includeOperators bool
	operatorChannels []string
	logger           *slog.Logger
}

// NewResolver builds a resolver from the dispatch config section.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		includeOperators: cfg.Dispatch.IncludeOperators,
		operatorChannels: cfg.Dispatch.OperatorChannels,
		logger:           logging.NewComponentLogger(logger, "recipients"),
	}
}

// Resolve returns the recipients for a record, deduplicated by channel. An
// owner without a usable channel is logged and skipped rather than failing
// the run.
func (r *Resolver) Resolve(record expiring.Record) []Recipient {
	seen := make(map[string]bool)
	var recipients []Recipient

	if r.includeOperators {
		for _, channel := range r.operatorChannels {
			if channel == "" || seen[channel] {
				continue
			}
			seen[channel] = true
			recipients = append(recipients, Recipient{ID: channel, ChannelID: channel, Kind: KindOperator})
		}
	}

	switch {
	case !record.NotifyEnabled:
		r.logger.Debug("owner opted out of notifications",
			logging.Int64(logging.FieldOwnerID, record.OwnerID))
	case record.ChannelID == "":
		r.logger.Warn("owner has no messaging channel, skipping direct notice",
			logging.Int64(logging.FieldOwnerID, record.OwnerID),
			logging.Int64(logging.FieldDeadlineID, record.DeadlineID))
	case seen[record.ChannelID]:
		// Owner channel already covered by an operator entry.
	default:
		recipients = append(recipients, Recipient{
			ID:        record.ChannelID,
			ChannelID: record.ChannelID,
			Kind:      KindOwner,
		})
	}

	return recipients
}
