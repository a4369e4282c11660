// Package session keeps a process-local record of the accounts and
// transfers submitted through this client. Nothing here is durable: the
// ledger node is the source of truth, and the tracker exists so the CLI
// and monitor can report on their own activity without re-deriving it
// from raw history.
package session

import (
	"sync"
	"time"

	"github.com/withObsrvr/ledger-da-client/client"
)

// AccountRecord describes an account created during this session.
type AccountRecord struct {
	Name           string
	InitialBalance uint64
	Sequence       uint64
	CreatedAt      time.Time
}

// TransferRecord describes a transfer applied during this session.
type TransferRecord struct {
	From      string
	To        string
	Amount    uint64
	Sequence  uint64
	AppliedAt time.Time
}

// Tracker accumulates session activity and the publication status of
// observed transitions. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	accounts  []AccountRecord
	transfers []TransferRecord
	published map[uint64]uint64 // sequence -> celestia height
	now       func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		published: make(map[uint64]uint64),
		now:       time.Now,
	}
}

// RecordAccount notes a successfully applied account creation.
func (t *Tracker) RecordAccount(name string, initialBalance uint64, result *client.TransitionResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts = append(t.accounts, AccountRecord{
		Name:           name,
		InitialBalance: initialBalance,
		Sequence:       result.Sequence,
		CreatedAt:      t.now(),
	})
	t.notePublication(result)
}

// RecordTransfer notes a successfully applied transfer.
func (t *Tracker) RecordTransfer(from, to string, amount uint64, result *client.TransitionResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transfers = append(t.transfers, TransferRecord{
		From:      from,
		To:        to,
		Amount:    amount,
		Sequence:  result.Sequence,
		AppliedAt: t.now(),
	})
	t.notePublication(result)
}

func (t *Tracker) notePublication(result *client.TransitionResult) {
	if result.CelestiaHeight != nil {
		t.published[result.Sequence] = *result.CelestiaHeight
	}
}

// Hydrate folds history entries from the node into the publication map,
// so a fresh process can answer PublishedHeight for transitions it did
// not submit itself.
func (t *Tracker) Hydrate(entries []client.HistoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		if e.CelestiaHeight != nil {
			t.published[e.Sequence] = *e.CelestiaHeight
		}
	}
}

// PublishedHeight reports the availability-network height a transition
// was published at, if known.
func (t *Tracker) PublishedHeight(sequence uint64) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.published[sequence]
	return h, ok
}

// Accounts returns a copy of the accounts created this session, in
// creation order.
func (t *Tracker) Accounts() []AccountRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]AccountRecord(nil), t.accounts...)
}

// Transfers returns a copy of the transfers applied this session, in
// application order.
func (t *Tracker) Transfers() []TransferRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]TransferRecord(nil), t.transfers...)
}
