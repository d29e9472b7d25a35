package tx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	OperationCreate   = "CREATE"
	OperationTransfer = "TRANSFER"

	// Version is the transaction schema version emitted by the builders.
	Version = "2.0"
)

// Payload is an opaque JSON value (asset or metadata content).
type Payload = any

// Transaction is the ledger transaction record. Field order here is the
// canonical key order; canonical serialization does not depend on it.
type Transaction struct {
	ID        *string  `json:"id"`
	Asset     Payload  `json:"asset"`
	Inputs    []Input  `json:"inputs"`
	Metadata  Payload  `json:"metadata"`
	Operation string   `json:"operation"`
	Outputs   []Output `json:"outputs"`
	Version   string   `json:"version"`
}

// Input spends an output (or issues, for a CREATE) and carries its
// fulfillment once signed.
type Input struct {
	Fulfillment  *string  `json:"fulfillment"`
	Fulfills     Fulfills `json:"fulfills"`
	OwnersBefore []string `json:"owners_before"`
}

// Output locks an amount to the holder of a condition.
type Output struct {
	Amount     string    `json:"amount"`
	Condition  Condition `json:"condition"`
	PublicKeys []string  `json:"public_keys"`
}

// Condition is an ed25519-sha-256 crypto-condition with its URI form.
type Condition struct {
	Details Details `json:"details"`
	URI     string  `json:"uri"`
}

// Details names the condition type and the Base58 public key it locks to.
type Details struct {
	PublicKey string `json:"public_key"`
	Type      string `json:"type"`
}

// OutputRef points at an output of an earlier transaction.
type OutputRef struct {
	OutputIndex   int    `json:"output_index"`
	TransactionID string `json:"transaction_id"`
}

// Fulfills is either absent (a CREATE input) or a reference to the output the
// input spends. The zero value is absent and serializes as null.
type Fulfills struct {
	ref     OutputRef
	present bool
}

// NoFulfills returns the absent variant.
func NoFulfills() Fulfills { return Fulfills{} }

// Spends returns the present variant referencing output index of txID.
func Spends(txID string, index int) Fulfills {
	return Fulfills{ref: OutputRef{OutputIndex: index, TransactionID: txID}, present: true}
}

// Get returns the referenced output and whether one is present.
func (f Fulfills) Get() (OutputRef, bool) { return f.ref, f.present }

// IsPresent reports whether the input spends an earlier output.
func (f Fulfills) IsPresent() bool { return f.present }

func (f Fulfills) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.ref)
}

func (f *Fulfills) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Fulfills{}
		return nil
	}
	var ref OutputRef
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ref); err != nil {
		return fmt.Errorf("fulfills: %w", err)
	}
	*f = Fulfills{ref: ref, present: true}
	return nil
}

// IDString returns the id or "" when unset.
func (t Transaction) IDString() string {
	if t.ID == nil {
		return ""
	}
	return *t.ID
}

// Clone returns a copy whose inputs, outputs and pointer fields are not shared
// with t. Payloads are shared.
func (t Transaction) Clone() Transaction {
	out := t
	out.ID = cloneString(t.ID)
	if t.Inputs != nil {
		out.Inputs = make([]Input, len(t.Inputs))
		for i, in := range t.Inputs {
			out.Inputs[i] = Input{
				Fulfillment:  cloneString(in.Fulfillment),
				Fulfills:     in.Fulfills,
				OwnersBefore: cloneStrings(in.OwnersBefore),
			}
		}
	}
	if t.Outputs != nil {
		out.Outputs = make([]Output, len(t.Outputs))
		for i, o := range t.Outputs {
			out.Outputs[i] = o
			out.Outputs[i].PublicKeys = cloneStrings(o.PublicKeys)
		}
	}
	return out
}

// Unsigned returns a clone with the id and every fulfillment reset to null:
// the form signing digests are computed over.
func (t Transaction) Unsigned() Transaction {
	out := t.Clone()
	out.ID = nil
	for i := range out.Inputs {
		out.Inputs[i].Fulfillment = nil
	}
	return out
}

// Parse decodes a transaction from JSON. Numbers inside payloads keep their
// literal spelling and unknown top-level fields are rejected, since either
// would change the canonical bytes.
func Parse(raw []byte) (Transaction, error) {
	var t Transaction
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return Transaction{}, fmt.Errorf("parse transaction: %w", err)
	}
	if dec.More() {
		return Transaction{}, fmt.Errorf("parse transaction: trailing data")
	}
	return t, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
