package followup

import (
	"strings"
	"testing"
	"time"
)

func TestNextWalksColdTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := Followup{ConversationID: "whatsapp_1@c.us", Kind: KindLanding}

	f, ok := f.Next(now)
	if !ok || f.Kind != KindCold || f.Tier != 0 {
		t.Fatalf("after landing: %+v ok=%v", f, ok)
	}
	if !f.DueAt.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("DueAt = %v, want +30m", f.DueAt)
	}

	for tier := 1; tier < len(ColdTiers); tier++ {
		f, ok = f.Next(now)
		if !ok || f.Tier != tier {
			t.Fatalf("tier %d: %+v ok=%v", tier, f, ok)
		}
		if !f.DueAt.Equal(now.Add(ColdTiers[tier])) {
			t.Errorf("tier %d DueAt = %v", tier, f.DueAt)
		}
	}

	if _, ok := f.Next(now); ok {
		t.Error("expected tiers to be exhausted")
	}
}

func TestColdMessage(t *testing.T) {
	if ColdMessage(1) == ColdMessage(0) {
		t.Error("tiers should have distinct messages")
	}
	if ColdMessage(99) != ColdMessage(0) {
		t.Error("out of range tier should fall back to the first message")
	}
}

func TestLandingMessage(t *testing.T) {
	beds, area := 2, 85
	msg := LandingMessage("Apartamento Aldeota", &beds, &area, "Aldeota")
	for _, want := range []string{"*Apartamento Aldeota*", "2 quartos", "85m2", "Aldeota."} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	msg = LandingMessage("Casa", nil, nil, "")
	if strings.Contains(msg, "quartos") {
		t.Errorf("message without bedrooms mentions quartos: %q", msg)
	}
}
