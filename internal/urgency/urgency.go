// Package urgency classifies deadlines into tiers based on calendar days
// remaining until expiration.
package urgency

import "time"

// Tier labels how close a deadline is to its expiration date.
type Tier string

const (
	TierSafe     Tier = "safe"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

// Tier boundaries in days remaining. Both bounds are inclusive: day 7 is
// still critical, day 14 is still warning.
const (
	criticalMaxDays = 7
	warningMaxDays  = 14
)

// DaysUntil returns the number of calendar days from today until expiration.
// Both instants are reduced to their calendar date and rebuilt in UTC, where
// every day is exactly 24 hours, so neither partial days nor DST transitions
// shift the count.
func DaysUntil(expiration, today time.Time) int {
	expDate := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(expDate.Sub(todayDate) / (24 * time.Hour))
}

// Classify maps an expiration date to its urgency tier relative to today.
func Classify(expiration, today time.Time) Tier {
	return ClassifyDays(DaysUntil(expiration, today))
}

// ClassifyDays maps a days-remaining count to its urgency tier.
func ClassifyDays(days int) Tier {
	switch {
	case days < 0:
		return TierExpired
	case days <= criticalMaxDays:
		return TierCritical
	case days <= warningMaxDays:
		return TierWarning
	default:
		return TierSafe
	}
}

// Marker returns the textual badge used in notification messages.
func (t Tier) Marker() string {
	switch t {
	case TierExpired:
		return "EXPIRED"
	case TierCritical:
		return "CRITICAL"
	case TierWarning:
		return "WARNING"
	default:
		return "OK"
	}
}
