package notify

import (
	"fmt"
	"strings"
	"time"

	"duewatch/internal/expiring"
	"duewatch/internal/urgency"
)

// Message renders the notification text for one expiring deadline.
func Message(record expiring.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s\n", record.Tier.Marker(), record.Label)
	fmt.Fprintf(&sb, "Owner: %s", record.OwnerName)
	if record.OwnerTaxID != "" {
		fmt.Fprintf(&sb, " (%s)", record.OwnerTaxID)
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Expires: %s\n", record.ExpirationDate.Format(time.DateOnly))

	switch {
	case record.DaysRemaining < 0:
		fmt.Fprintf(&sb, "Overdue by %s.", plural(-record.DaysRemaining, "day"))
	case record.DaysRemaining == 0:
		sb.WriteString("Expires today.")
	default:
		fmt.Fprintf(&sb, "%s remaining.", plural(record.DaysRemaining, "day"))
	}

	return sb.String()
}

// RunSummary renders the operator digest sent after a dispatch run.
func RunSummary(runID string, summary Summary, elapsed time.Duration, counts map[urgency.Tier]int) string {
	var sb strings.Builder

	sb.WriteString("Deadline check complete\n")
	fmt.Fprintf(&sb, "Run: %s\n", runID)
	fmt.Fprintf(&sb, "Source: %s\n", summary.Source)
	fmt.Fprintf(&sb, "Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Checked %d, sent %d, skipped %d, failed %d\n",
		summary.Checked, summary.Sent, summary.Skipped, summary.Failed)
	if len(summary.FailedThresholds) > 0 {
		fmt.Fprintf(&sb, "Unfetched windows: %s\n", joinInts(summary.FailedThresholds))
	}
	fmt.Fprintf(&sb, "Expired %d | Critical %d | Warning %d | Safe %d",
		counts[urgency.TierExpired], counts[urgency.TierCritical],
		counts[urgency.TierWarning], counts[urgency.TierSafe])

	return sb.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%dd", v)
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
