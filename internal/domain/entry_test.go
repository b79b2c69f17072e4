package domain_test

import (
	"testing"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.EntryStatus
		want     bool
	}{
		{domain.StatusHold, domain.StatusConfirmed, true},
		{domain.StatusHold, domain.StatusReleased, true},
		{domain.StatusHold, domain.StatusExpired, true},
		{domain.StatusHold, domain.StatusCancelled, false},
		{domain.StatusConfirmed, domain.StatusCancelled, true},
		{domain.StatusConfirmed, domain.StatusHold, false},
		{domain.StatusCancelled, domain.StatusConfirmed, false},
		{domain.StatusExpired, domain.StatusConfirmed, false},
		{domain.StatusReleased, domain.StatusHold, false},
	}
	for _, c := range cases {
		e := domain.LedgerEntry{Status: c.from}
		if got := e.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	confirmed := domain.LedgerEntry{Status: domain.StatusConfirmed}
	if !confirmed.ActiveAt(now) {
		t.Fatalf("confirmed entry must block inventory")
	}

	live := domain.LedgerEntry{Status: domain.StatusHold, ExpiresAt: &future}
	if !live.ActiveAt(now) {
		t.Fatalf("unexpired hold must block inventory")
	}

	// Expired but not yet swept: already invisible to availability.
	stale := domain.LedgerEntry{Status: domain.StatusHold, ExpiresAt: &past}
	if stale.ActiveAt(now) {
		t.Fatalf("expired hold must not block inventory")
	}

	cancelled := domain.LedgerEntry{Status: domain.StatusCancelled}
	if cancelled.ActiveAt(now) {
		t.Fatalf("cancelled entry must not block inventory")
	}
}
