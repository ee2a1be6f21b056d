package notify_test

import (
	"strings"
	"testing"
	"time"

	"duewatch/internal/expiring"
	"duewatch/internal/notify"
	"duewatch/internal/urgency"
)

func TestMessageRendering(t *testing.T) {
	record := expiring.Record{
		OwnerName:      "Alpha Trading",
		OwnerTaxID:     "TAX-42",
		Label:          "Fiscalization",
		ExpirationDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		DaysRemaining:  5,
		Tier:           urgency.TierCritical,
	}
	text := notify.Message(record)

	for _, want := range []string{"[CRITICAL]", "Fiscalization", "Alpha Trading (TAX-42)", "2026-09-10", "5 days remaining."} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}
}

func TestMessageOverdueAndToday(t *testing.T) {
	record := expiring.Record{
		OwnerName:     "Beta",
		Label:         "License",
		DaysRemaining: -3,
		Tier:          urgency.TierExpired,
	}
	if text := notify.Message(record); !strings.Contains(text, "Overdue by 3 days.") {
		t.Fatalf("overdue wording missing:\n%s", text)
	}

	record.DaysRemaining = 0
	record.Tier = urgency.TierCritical
	if text := notify.Message(record); !strings.Contains(text, "Expires today.") {
		t.Fatalf("same-day wording missing:\n%s", text)
	}

	record.DaysRemaining = 1
	if text := notify.Message(record); !strings.Contains(text, "1 day remaining.") {
		t.Fatalf("singular wording missing:\n%s", text)
	}
}

func TestRunSummaryRendering(t *testing.T) {
	text := notify.RunSummary("run-1", notify.Summary{
		Checked: 4, Sent: 2, Skipped: 1, Failed: 1, Source: expiring.SourceStore,
	}, 1500*time.Millisecond, map[urgency.Tier]int{
		urgency.TierExpired:  1,
		urgency.TierCritical: 2,
		urgency.TierWarning:  3,
		urgency.TierSafe:     4,
	})

	for _, want := range []string{"run-1", "Source: store", "Elapsed: 1.5s", "Checked 4, sent 2, skipped 1, failed 1", "Expired 1 | Critical 2 | Warning 3 | Safe 4"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}
