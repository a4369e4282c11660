package session

import (
	"testing"
	"time"

	"github.com/withObsrvr/ledger-da-client/client"
)

func heightPtr(h uint64) *uint64 { return &h }

func TestRecordAndList(t *testing.T) {
	tr := NewTracker()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	tr.RecordAccount("alice", 1000, &client.TransitionResult{Sequence: 0, CelestiaHeight: heightPtr(100)})
	tr.RecordAccount("bob", 500, &client.TransitionResult{Sequence: 1})
	tr.RecordTransfer("alice", "bob", 250, &client.TransitionResult{Sequence: 2, CelestiaHeight: heightPtr(105)})

	accounts := tr.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(accounts))
	}
	if accounts[0].Name != "alice" || accounts[0].InitialBalance != 1000 || accounts[0].CreatedAt != fixed {
		t.Errorf("accounts[0] = %+v", accounts[0])
	}
	if accounts[1].Name != "bob" || accounts[1].Sequence != 1 {
		t.Errorf("accounts[1] = %+v", accounts[1])
	}

	transfers := tr.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(transfers))
	}
	if transfers[0].From != "alice" || transfers[0].To != "bob" || transfers[0].Amount != 250 {
		t.Errorf("transfers[0] = %+v", transfers[0])
	}
}

func TestPublishedHeight(t *testing.T) {
	tr := NewTracker()

	tr.RecordAccount("alice", 1000, &client.TransitionResult{Sequence: 0, CelestiaHeight: heightPtr(100)})
	tr.RecordAccount("bob", 500, &client.TransitionResult{Sequence: 1})

	if h, ok := tr.PublishedHeight(0); !ok || h != 100 {
		t.Errorf("PublishedHeight(0) = %d, %v, want 100, true", h, ok)
	}
	if _, ok := tr.PublishedHeight(1); ok {
		t.Error("PublishedHeight(1) = true, want false for unpublished transition")
	}
}

func TestHydrate(t *testing.T) {
	tr := NewTracker()
	tr.Hydrate([]client.HistoryEntry{
		{Sequence: 0, CelestiaHeight: heightPtr(90)},
		{Sequence: 1},
		{Sequence: 2, CelestiaHeight: heightPtr(95)},
	})

	if h, ok := tr.PublishedHeight(2); !ok || h != 95 {
		t.Errorf("PublishedHeight(2) = %d, %v, want 95, true", h, ok)
	}
	if _, ok := tr.PublishedHeight(1); ok {
		t.Error("PublishedHeight(1) = true, want false")
	}
	if len(tr.Accounts()) != 0 || len(tr.Transfers()) != 0 {
		t.Error("hydration must not invent session activity")
	}
}
