package deadline

import "time"

// Status values for a deadline record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Outcome values for a dispatch log entry.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Owner is a party responsible for one or more assets. ChannelID is the
// messaging channel used for direct notifications; empty means the owner
// cannot be reached directly.
type Owner struct {
	ID            int64
	Name          string
	TaxID         string
	ChannelID     string
	NotifyEnabled bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Asset is a tracked unit belonging to an owner. Deadlines usually hang off
// an asset, though owner-level deadlines carry no asset reference.
type Asset struct {
	ID        int64
	OwnerID   int64
	Name      string
	Serial    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeadlineType names a category of deadline. Category is the stable machine
// key the synchronizer matches on; Label is the human-readable name used in
// notifications.
type DeadlineType struct {
	ID       int64
	Category string
	Label    string
	Active   bool
}

// Deadline is one expiration obligation. AssetID is zero for owner-level
// deadlines. Note accumulates timestamped audit lines as the synchronizer
// adjusts the record.
type Deadline struct {
	ID             int64
	OwnerID        int64
	AssetID        int64
	TypeID         int64
	ExpirationDate time.Time
	Status         Status
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DispatchEntry is one row of the dispatch log.
type DispatchEntry struct {
	ID            int64
	DeadlineID    int64
	RecipientID   string
	ThresholdDays int
	Outcome       Outcome
	ErrorDetail   string
	SentAt        time.Time
}

// ExpiringRow is a deadline joined with its owner and type, as returned by
// the store's expiring query. DaysRemaining is computed by the caller.
type ExpiringRow struct {
	DeadlineID     int64
	OwnerID        int64
	OwnerName      string
	OwnerTaxID     string
	ChannelID      string
	NotifyEnabled  bool
	Category       string
	Label          string
	ExpirationDate time.Time
}

// AssetDates carries the per-category expiration dates observed on an asset.
// A nil date means the field is unset on the source record.
type AssetDates struct {
	AssetID int64
	OwnerID int64
	Dates   map[string]*time.Time
}
