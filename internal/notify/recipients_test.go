package notify_test

import (
	"testing"

	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
	"duewatch/internal/testsupport"
)

func TestResolveOperatorsFirstThenOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOperatorChannels("op-1", "op-2"))
	resolver := notify.NewResolver(cfg, logging.NewNop())

	recipients := resolver.Resolve(expiring.Record{
		OwnerID:       7,
		ChannelID:     "owner-7",
		NotifyEnabled: true,
	})
	if len(recipients) != 3 {
		t.Fatalf("expected 3 recipients, got %+v", recipients)
	}
	if recipients[0].ID != "op-1" || recipients[1].ID != "op-2" {
		t.Fatalf("operator order wrong: %+v", recipients)
	}
	if recipients[2].Kind != notify.KindOwner || recipients[2].ChannelID != "owner-7" {
		t.Fatalf("owner recipient wrong: %+v", recipients[2])
	}
}

func TestResolveSkipsOwnerWithoutChannel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOperatorChannels("op-1"))
	resolver := notify.NewResolver(cfg, logging.NewNop())

	recipients := resolver.Resolve(expiring.Record{OwnerID: 7, NotifyEnabled: true})
	if len(recipients) != 1 || recipients[0].Kind != notify.KindOperator {
		t.Fatalf("expected only operator, got %+v", recipients)
	}
}

func TestResolveSkipsOptedOutOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := notify.NewResolver(cfg, logging.NewNop())

	recipients := resolver.Resolve(expiring.Record{OwnerID: 7, ChannelID: "owner-7", NotifyEnabled: false})
	if len(recipients) != 0 {
		t.Fatalf("expected no recipients, got %+v", recipients)
	}
}

func TestResolveDedupsOwnerChannelAgainstOperators(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOperatorChannels("shared", "shared"))
	resolver := notify.NewResolver(cfg, logging.NewNop())

	recipients := resolver.Resolve(expiring.Record{
		OwnerID:       7,
		ChannelID:     "shared",
		NotifyEnabled: true,
	})
	if len(recipients) != 1 {
		t.Fatalf("expected single deduped recipient, got %+v", recipients)
	}
	if recipients[0].Kind != notify.KindOperator {
		t.Fatalf("operator entry should win: %+v", recipients[0])
	}
}
