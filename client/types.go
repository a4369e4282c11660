package client

import (
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte state root or key hash, hex-encoded on the wire.
type Hash [32]byte

// ParseHash decodes a hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash length %d, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// RootInfo is the latest state root as reported by /root/latest.
type RootInfo struct {
	Root            Hash
	TransitionIndex uint64
	CelestiaHeight  *uint64
}

// HistoryEntry is one accepted batch in the ledger's root history.
// CelestiaHeight is nil until the accompanying proof blob has been
// published; once set it never changes.
type HistoryEntry struct {
	Sequence       uint64
	Root           Hash
	CelestiaHeight *uint64
}

// SyncStatus reports the node's view of its own availability-network sync.
type SyncStatus struct {
	TransitionIndex    uint64
	LatestRoot         Hash
	CelestiaEnabled    bool
	LastCelestiaHeight *uint64
}

// MerkleProof is the inclusion proof returned alongside point lookups.
// The client treats it as opaque verification material for downstream
// tooling; it does not re-derive the state tree.
type MerkleProof struct {
	KeyHash  Hash
	Value    []byte
	Siblings []Hash
}

// TransitionResult is the ledger service's acknowledgement of an accepted
// batch.
type TransitionResult struct {
	Sequence       uint64
	PrevRoot       Hash
	NewRoot        Hash
	CelestiaHeight *uint64
	ProofSizeBytes int
}

// TransitionRecord is the externally-verifiable artifact for one accepted
// batch, retrieved from the availability network by published height.
type TransitionRecord struct {
	Sequence       uint64
	PrevRoot       Hash
	NewRoot        Hash
	PublicInputs   []byte
	Proof          []byte
	ProofSizeBytes int
	ProgramHash    Hash
	CelestiaHeight uint64
}
