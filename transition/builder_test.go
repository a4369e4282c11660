package transition

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeReader serves point lookups from a map; absent keys return nil, nil.
type fakeReader struct {
	values map[string][]byte
	errs   map[string]error
}

func (f *fakeReader) GetValue(_ context.Context, key string) ([]byte, error) {
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.values[key], nil
}

func readerWith(accounts map[string]Account) *fakeReader {
	values := make(map[string][]byte, len(accounts))
	for name, acc := range accounts {
		values[AccountKey(name)] = acc.Encode()
	}
	return &fakeReader{values: values}
}

func TestBuildCreateAccount(t *testing.T) {
	batch, err := BuildCreateAccount("alice", 1000)
	if err != nil {
		t.Fatalf("BuildCreateAccount failed: %v", err)
	}

	if len(batch.Operations) != 1 {
		t.Fatalf("operations = %d, want 1", len(batch.Operations))
	}
	op := batch.Operations[0]
	if op.Type != OpInsert || op.Key != "account:alice" {
		t.Errorf("operation = %+v, want insert on account:alice", op)
	}
	decoded := DecodeAccount(op.Value)
	if decoded == nil || decoded.Balance != 1000 || decoded.Nonce != 0 {
		t.Errorf("stored value decodes to %+v, want {1000 0}", decoded)
	}

	if len(batch.VerifiableOperations) != 1 {
		t.Fatalf("verifiable operations = %d, want 1", len(batch.VerifiableOperations))
	}
	vop := batch.VerifiableOperations[0]
	if vop.WitnessIndex != 0 {
		t.Errorf("witness index = %d, want 0", vop.WitnessIndex)
	}
	create, ok := vop.OpType.(CreateAccountOp)
	if !ok {
		t.Fatalf("op type = %T, want CreateAccountOp", vop.OpType)
	}
	if create.InitialBalance != 1000 {
		t.Errorf("initial balance = %d, want 1000", create.InitialBalance)
	}
	if vop.OldValue != nil {
		t.Errorf("old value = %x, want nil for a fresh account", vop.OldValue)
	}

	if string(batch.PublicInputs) != "create_account:alice:1000" {
		t.Errorf("public inputs = %q", batch.PublicInputs)
	}
}

func TestBuildCreateAccountEmptyName(t *testing.T) {
	if _, err := BuildCreateAccount("", 10); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBuildTransfer(t *testing.T) {
	reader := readerWith(map[string]Account{
		"alice": {Balance: 1000, Nonce: 0},
		"bob":   {Balance: 500, Nonce: 2},
	})

	batch, err := BuildTransfer(context.Background(), reader, "alice", "bob", 100)
	if err != nil {
		t.Fatalf("BuildTransfer failed: %v", err)
	}

	if len(batch.Operations) != 2 {
		t.Fatalf("operations = %d, want 2", len(batch.Operations))
	}
	newSender := DecodeAccount(batch.Operations[0].Value)
	if newSender == nil || newSender.Balance != 900 || newSender.Nonce != 1 {
		t.Errorf("sender record = %+v, want {900 1}", newSender)
	}
	newRecipient := DecodeAccount(batch.Operations[1].Value)
	if newRecipient == nil || newRecipient.Balance != 600 || newRecipient.Nonce != 2 {
		t.Errorf("recipient record = %+v, want {600 2}", newRecipient)
	}

	if len(batch.VerifiableOperations) != 2 {
		t.Fatalf("verifiable operations = %d, want 2", len(batch.VerifiableOperations))
	}
	for i, vop := range batch.VerifiableOperations {
		transfer, ok := vop.OpType.(TransferOp)
		if !ok {
			t.Fatalf("descriptor %d op type = %T, want TransferOp", i, vop.OpType)
		}
		if transfer.From != "account:alice" || transfer.To != "account:bob" || transfer.Amount != 100 {
			t.Errorf("descriptor %d payload = %+v", i, transfer)
		}
	}

	if string(batch.PublicInputs) != "transfer:alice:bob:100" {
		t.Errorf("public inputs = %q", batch.PublicInputs)
	}
}

// The circuit expects sender-then-recipient regardless of how the account
// names sort.
func TestBuildTransferWitnessOrdering(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"sender sorts first", "alice", "bob"},
		{"sender sorts last", "zed", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := readerWith(map[string]Account{
				tt.from: {Balance: 100, Nonce: 0},
				tt.to:   {Balance: 0, Nonce: 0},
			})

			batch, err := BuildTransfer(context.Background(), reader, tt.from, tt.to, 10)
			if err != nil {
				t.Fatalf("BuildTransfer failed: %v", err)
			}

			for _, vop := range batch.VerifiableOperations {
				switch vop.Key {
				case AccountKey(tt.from):
					if vop.WitnessIndex != 0 {
						t.Errorf("sender witness index = %d, want 0", vop.WitnessIndex)
					}
				case AccountKey(tt.to):
					if vop.WitnessIndex != 1 {
						t.Errorf("recipient witness index = %d, want 1", vop.WitnessIndex)
					}
				default:
					t.Errorf("unexpected descriptor key %q", vop.Key)
				}
			}
		})
	}
}

func TestBuildTransferAbsentRecipient(t *testing.T) {
	reader := readerWith(map[string]Account{
		"alice": {Balance: 1000, Nonce: 0},
	})

	batch, err := BuildTransfer(context.Background(), reader, "alice", "bob", 100)
	if err != nil {
		t.Fatalf("BuildTransfer failed: %v", err)
	}

	newRecipient := DecodeAccount(batch.Operations[1].Value)
	if newRecipient == nil || newRecipient.Balance != 100 || newRecipient.Nonce != 0 {
		t.Errorf("materialized recipient = %+v, want {100 0}", newRecipient)
	}

	recipientDesc := batch.VerifiableOperations[1]
	if recipientDesc.OldValue != nil {
		t.Errorf("recipient old value = %x, want nil", recipientDesc.OldValue)
	}
}

func TestBuildTransferOldValues(t *testing.T) {
	alice := Account{Balance: 1000, Nonce: 4}
	bob := Account{Balance: 7, Nonce: 1}
	reader := readerWith(map[string]Account{"alice": alice, "bob": bob})

	batch, err := BuildTransfer(context.Background(), reader, "alice", "bob", 500)
	if err != nil {
		t.Fatalf("BuildTransfer failed: %v", err)
	}

	senderDesc := batch.VerifiableOperations[0]
	if got := DecodeAccount(senderDesc.OldValue); got == nil || *got != alice {
		t.Errorf("sender old value decodes to %+v, want %+v", got, alice)
	}
	recipientDesc := batch.VerifiableOperations[1]
	if got := DecodeAccount(recipientDesc.OldValue); got == nil || *got != bob {
		t.Errorf("recipient old value decodes to %+v, want %+v", got, bob)
	}
}

func TestBuildTransferValidation(t *testing.T) {
	reader := readerWith(map[string]Account{
		"alice": {Balance: 500, Nonce: 0},
	})

	tests := []struct {
		name     string
		from, to string
		amount   uint64
		wantErr  error
	}{
		{"insufficient balance", "alice", "bob", 600, ErrInsufficientBalance},
		{"unknown sender", "carol", "bob", 10, ErrAccountNotFound},
		{"zero amount", "alice", "bob", 0, ErrInvalidInput},
		{"self transfer", "alice", "alice", 10, ErrInvalidInput},
		{"empty sender", "", "bob", 10, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTransfer(context.Background(), reader, tt.from, tt.to, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildTransferLookupError(t *testing.T) {
	lookupErr := fmt.Errorf("connection refused")
	reader := &fakeReader{
		values: map[string][]byte{
			AccountKey("alice"): {0: 0}, // irrelevant, lookup fails first
		},
		errs: map[string]error{AccountKey("alice"): lookupErr},
	}

	_, err := BuildTransfer(context.Background(), reader, "alice", "bob", 10)
	if err == nil || !errors.Is(err, lookupErr) {
		t.Errorf("err = %v, want wrapped lookup error", err)
	}
}
