package tx

import (
	"fmt"

	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

// Validate checks the structural shape of t. It does not check signatures.
func (t Transaction) Validate() error {
	switch t.Operation {
	case OperationCreate, OperationTransfer:
	default:
		return invalid("TX-TX-010", fmt.Sprintf("unknown operation %q", t.Operation))
	}
	if t.Version != Version {
		return invalid("TX-TX-011", fmt.Sprintf("unsupported version %q", t.Version))
	}
	if len(t.Inputs) == 0 {
		return invalid("TX-TX-012", "transaction has no inputs")
	}
	if len(t.Outputs) == 0 {
		return invalid("TX-TX-013", "transaction has no outputs")
	}
	for i, in := range t.Inputs {
		if len(in.OwnersBefore) == 0 {
			return invalid("TX-TX-014", fmt.Sprintf("inputs[%d]: owners_before is empty", i))
		}
		for _, owner := range in.OwnersBefore {
			if _, err := hashutil.DecodePublicKey(owner); err != nil {
				return txerr.Wrap(txerr.KindInvalidTx, "TX-TX-015",
					fmt.Sprintf("inputs[%d]: bad owner key", i), err)
			}
		}
		ref, spends := in.Fulfills.Get()
		if t.Operation == OperationCreate && spends {
			return invalid("TX-TX-016", fmt.Sprintf("inputs[%d]: create input must not spend an output", i))
		}
		if t.Operation == OperationTransfer {
			if !spends {
				return invalid("TX-TX-017", fmt.Sprintf("inputs[%d]: transfer input must spend an output", i))
			}
			if _, err := hashutil.DecodeHex32(ref.TransactionID); err != nil {
				return txerr.Wrap(txerr.KindInvalidTx, "TX-TX-018",
					fmt.Sprintf("inputs[%d]: bad transaction_id", i), err)
			}
			if ref.OutputIndex < 0 {
				return invalid("TX-TX-019", fmt.Sprintf("inputs[%d]: negative output_index", i))
			}
		}
	}
	for i, o := range t.Outputs {
		if o.Amount == "" {
			return invalid("TX-TX-020", fmt.Sprintf("outputs[%d]: amount is empty", i))
		}
		if o.Condition.Details.Type != ccond.TypeName {
			return invalid("TX-TX-021", fmt.Sprintf("outputs[%d]: unsupported condition type %q", i, o.Condition.Details.Type))
		}
		pub, err := hashutil.DecodePublicKey(o.Condition.Details.PublicKey)
		if err != nil {
			return txerr.Wrap(txerr.KindInvalidTx, "TX-TX-022",
				fmt.Sprintf("outputs[%d]: bad condition key", i), err)
		}
		want, err := ccond.ConditionURI(pub)
		if err != nil {
			return err
		}
		if o.Condition.URI != want {
			return invalid("TX-TX-023", fmt.Sprintf("outputs[%d]: condition uri does not match public key", i))
		}
	}
	return nil
}

func invalid(rule, msg string) error {
	return txerr.New(txerr.KindInvalidTx, rule, msg)
}
