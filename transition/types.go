package transition

import "encoding/json"

// Operation kinds accepted by the ledger service.
const (
	OpInsert = "insert"
	OpDelete = "delete"
)

// Operation is one plain key/value write in a batch. Values travel
// base64-encoded on the wire; encoding/json handles that for []byte.
type Operation struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// NewInsert builds an insert operation for the given key.
func NewInsert(key string, value []byte) Operation {
	return Operation{Type: OpInsert, Key: key, Value: value}
}

// NewDelete builds a delete operation for the given key.
func NewDelete(key string) Operation {
	return Operation{Type: OpDelete, Key: key}
}

// OperationType is the closed set of verifiable-operation kinds. Each
// variant marshals to the externally-tagged JSON form the ledger service
// expects ("Set" as a bare string, the rest as single-key objects).
type OperationType interface {
	json.Marshaler
	operationType()
}

// SetOp is an untyped write with no circuit-level semantics.
type SetOp struct{}

func (SetOp) operationType() {}

func (SetOp) MarshalJSON() ([]byte, error) {
	return json.Marshal("Set")
}

// CreateAccountOp materializes a fresh account with an initial balance.
type CreateAccountOp struct {
	InitialBalance uint64 `json:"initial_balance"`
}

func (CreateAccountOp) operationType() {}

func (op CreateAccountOp) MarshalJSON() ([]byte, error) {
	type payload CreateAccountOp
	return json.Marshal(map[string]payload{"CreateAccount": payload(op)})
}

// TransferOp moves funds between two account keys. Both descriptors of a
// transfer batch carry the same TransferOp and differ only in key, values
// and witness index.
type TransferOp struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (TransferOp) operationType() {}

func (op TransferOp) MarshalJSON() ([]byte, error) {
	type payload TransferOp
	return json.Marshal(map[string]payload{"Transfer": payload(op)})
}

// MintOp credits an account out of thin air. Carried for wire parity with
// the node's transition format; the builders in this package never emit it.
type MintOp struct {
	Amount uint64 `json:"amount"`
}

func (MintOp) operationType() {}

func (op MintOp) MarshalJSON() ([]byte, error) {
	type payload MintOp
	return json.Marshal(map[string]payload{"Mint": payload(op)})
}

// BurnOp debits an account without a recipient. Wire parity only, as MintOp.
type BurnOp struct {
	Amount uint64 `json:"amount"`
}

func (BurnOp) operationType() {}

func (op BurnOp) MarshalJSON() ([]byte, error) {
	type payload BurnOp
	return json.Marshal(map[string]payload{"Burn": payload(op)})
}

// VerifiableOperation carries what the prover needs beyond the plain write.
// WitnessIndex is the position of this operation's witness in the circuit's
// expected input ordering; the builders assign it deterministically.
type VerifiableOperation struct {
	OpType       OperationType `json:"op_type"`
	Key          string        `json:"key"`
	OldValue     []byte        `json:"old_value"`
	NewValue     []byte        `json:"new_value"`
	WitnessIndex int           `json:"witness_index"`
}

// Batch is one atomic set of writes submitted and proven together.
// Operations and VerifiableOperations have the same cardinality for every
// batch the builders produce; operation order is irrelevant to the ledger
// but witness ordering is load-bearing for the prover.
type Batch struct {
	Operations           []Operation           `json:"operations"`
	PublicInputs         []byte                `json:"public_inputs"`
	PrivateInputs        []byte                `json:"private_inputs"`
	VerifiableOperations []VerifiableOperation `json:"verifiable_operations"`
}
