package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Validation errors. These abort batch construction before anything is
// submitted and are never retried.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// StateReader is the single point lookup the builders need from the ledger
// service. A nil value with a nil error means the key is absent.
type StateReader interface {
	GetValue(ctx context.Context, key string) ([]byte, error)
}

// BuildCreateAccount constructs a batch that writes a fresh account record
// with the given initial balance and nonce 0, plus the matching
// CreateAccount descriptor at witness index 0.
func BuildCreateAccount(name string, initialBalance uint64) (*Batch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is empty", ErrInvalidInput)
	}

	account := Account{Balance: initialBalance, Nonce: 0}
	key := AccountKey(name)
	encoded := account.Encode()

	return &Batch{
		Operations: []Operation{NewInsert(key, encoded)},
		VerifiableOperations: []VerifiableOperation{{
			OpType:       CreateAccountOp{InitialBalance: initialBalance},
			Key:          key,
			NewValue:     encoded,
			WitnessIndex: 0,
		}},
		PublicInputs: fmt.Appendf(nil, "create_account:%s:%d", name, initialBalance),
	}, nil
}

// BuildTransfer constructs a batch that moves amount from one account to
// another. It reads the current proven values of both keys (two independent
// lookups, no cross-key snapshot), derives the new records, and emits two
// writes plus two Transfer descriptors in the witness ordering the proving
// circuit expects: sender at index 0, recipient at index 1.
//
// An absent recipient is materialized as a zero-balance account by the
// transfer itself. An absent sender is an error.
func BuildTransfer(ctx context.Context, reader StateReader, from, to string, amount uint64) (*Batch, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: account name is empty", ErrInvalidInput)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidInput)
	}
	if from == to {
		// A self-transfer would put two conflicting writes on one key in a
		// single batch.
		return nil, fmt.Errorf("%w: sender and recipient are the same account", ErrInvalidInput)
	}

	fromKey := AccountKey(from)
	toKey := AccountKey(to)

	// The two lookups are independent; issue them together and join before
	// deriving any write.
	var (
		wg             sync.WaitGroup
		fromRaw, toRaw []byte
		fromErr, toErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fromRaw, fromErr = reader.GetValue(ctx, fromKey)
	}()
	go func() {
		defer wg.Done()
		toRaw, toErr = reader.GetValue(ctx, toKey)
	}()
	wg.Wait()

	if fromErr != nil {
		return nil, fmt.Errorf("lookup sender %q: %w", from, fromErr)
	}
	if toErr != nil {
		return nil, fmt.Errorf("lookup recipient %q: %w", to, toErr)
	}

	sender := DecodeAccount(fromRaw)
	if sender == nil {
		return nil, fmt.Errorf("%w: sender %q", ErrAccountNotFound, from)
	}
	if sender.Balance < amount {
		return nil, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, sender.Balance, amount)
	}

	recipient := DecodeAccount(toRaw)
	if recipient == nil {
		recipient = &Account{}
	}
	if recipient.Balance+amount < recipient.Balance {
		return nil, fmt.Errorf("%w: recipient balance overflows", ErrInvalidInput)
	}

	newSender := Account{Balance: sender.Balance - amount, Nonce: sender.Nonce + 1}
	newRecipient := Account{Balance: recipient.Balance + amount, Nonce: recipient.Nonce}

	newSenderBytes := newSender.Encode()
	newRecipientBytes := newRecipient.Encode()

	transfer := TransferOp{From: fromKey, To: toKey, Amount: amount}

	return &Batch{
		Operations: []Operation{
			NewInsert(fromKey, newSenderBytes),
			NewInsert(toKey, newRecipientBytes),
		},
		VerifiableOperations: []VerifiableOperation{
			{
				OpType:       transfer,
				Key:          fromKey,
				OldValue:     fromRaw,
				NewValue:     newSenderBytes,
				WitnessIndex: 0,
			},
			{
				OpType:       transfer,
				Key:          toKey,
				OldValue:     toRaw,
				NewValue:     newRecipientBytes,
				WitnessIndex: 1,
			},
		},
		PublicInputs: fmt.Appendf(nil, "transfer:%s:%s:%d", from, to, amount),
	}, nil
}
