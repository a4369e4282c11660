package transition

import (
	"bytes"
	"testing"
)

func TestAccountEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		nonce   uint64
	}{
		{"zero", 0, 0},
		{"basic", 1000, 0},
		{"after debit", 900, 1},
		{"large balance", 1<<63 + 12345, 7},
		{"max values", ^uint64(0), ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Account{Balance: tt.balance, Nonce: tt.nonce}.Encode()
			if len(encoded) != AccountEncodedLen {
				t.Fatalf("encoded length = %d, want %d", len(encoded), AccountEncodedLen)
			}

			decoded := DecodeAccount(encoded)
			if decoded == nil {
				t.Fatal("DecodeAccount returned nil for a full-length value")
			}
			if decoded.Balance != tt.balance {
				t.Errorf("Balance = %d, want %d", decoded.Balance, tt.balance)
			}
			if decoded.Nonce != tt.nonce {
				t.Errorf("Nonce = %d, want %d", decoded.Nonce, tt.nonce)
			}
		})
	}
}

func TestAccountEncodeLayout(t *testing.T) {
	// balance then nonce, each little-endian
	encoded := Account{Balance: 0x0102030405060708, Nonce: 0x1112131415161718}.Encode()

	wantBalance := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	wantNonce := []byte{0x18, 0x17, 0x16, 0x15, 0x14, 0x13, 0x12, 0x11}

	if !bytes.Equal(encoded[0:8], wantBalance) {
		t.Errorf("balance bytes = %x, want %x", encoded[0:8], wantBalance)
	}
	if !bytes.Equal(encoded[8:16], wantNonce) {
		t.Errorf("nonce bytes = %x, want %x", encoded[8:16], wantNonce)
	}
}

func TestDecodeAccountShortValue(t *testing.T) {
	for length := 0; length < AccountEncodedLen; length++ {
		if got := DecodeAccount(make([]byte, length)); got != nil {
			t.Errorf("DecodeAccount(%d bytes) = %+v, want nil", length, got)
		}
	}
	if DecodeAccount(nil) != nil {
		t.Error("DecodeAccount(nil) should be nil")
	}
}

func TestDecodeAccountIgnoresTrailingBytes(t *testing.T) {
	encoded := append(Account{Balance: 42, Nonce: 3}.Encode(), 0xFF, 0xFF)
	decoded := DecodeAccount(encoded)
	if decoded == nil {
		t.Fatal("DecodeAccount returned nil")
	}
	if decoded.Balance != 42 || decoded.Nonce != 3 {
		t.Errorf("decoded = %+v, want {42 3}", decoded)
	}
}

func TestAccountKey(t *testing.T) {
	if got := AccountKey("alice"); got != "account:alice" {
		t.Errorf("AccountKey(alice) = %q, want %q", got, "account:alice")
	}
}
