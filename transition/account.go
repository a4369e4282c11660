package transition

import "encoding/binary"

// AccountEncodedLen is the exact size of an encoded account record:
// balance (8 bytes) followed by nonce (8 bytes), both little-endian.
const AccountEncodedLen = 16

// Account is the ledger value stored under an account key. The ledger
// itself treats values as opaque bytes; this codec is the client-side
// contract shared with the proving circuit.
type Account struct {
	Balance uint64
	Nonce   uint64
}

// Encode returns the canonical 16-byte representation of the account.
func (a Account) Encode() []byte {
	b := make([]byte, AccountEncodedLen)
	binary.LittleEndian.PutUint64(b[0:8], a.Balance)
	binary.LittleEndian.PutUint64(b[8:16], a.Nonce)
	return b
}

// DecodeAccount parses a stored value into an account record. It returns
// nil for any value shorter than AccountEncodedLen, which models both
// "key not found" and "value is not an account yet".
func DecodeAccount(b []byte) *Account {
	if len(b) < AccountEncodedLen {
		return nil
	}
	return &Account{
		Balance: binary.LittleEndian.Uint64(b[0:8]),
		Nonce:   binary.LittleEndian.Uint64(b[8:16]),
	}
}

// AccountKey returns the ledger key under which the named account is stored.
func AccountKey(name string) string {
	return "account:" + name
}
