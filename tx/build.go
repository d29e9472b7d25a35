package tx

import (
	"fmt"

	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/txerr"
)

// UnspentOutput names one output of a signed transaction to be spent.
type UnspentOutput struct {
	Tx          Transaction
	OutputIndex int
}

// MakeEd25519Condition returns the condition locking an output to pubB58.
func MakeEd25519Condition(pubB58 string) (Condition, error) {
	uri, err := ccond.ConditionURIFromBase58(pubB58)
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Details: Details{PublicKey: pubB58, Type: ccond.TypeName},
		URI:     uri,
	}, nil
}

// MakeOutput wraps cond in an output. An empty amount defaults to "1".
func MakeOutput(cond Condition, amount string) Output {
	if amount == "" {
		amount = "1"
	}
	return Output{
		Amount:     amount,
		Condition:  cond,
		PublicKeys: []string{cond.Details.PublicKey},
	}
}

// MakeCreateTransaction builds an unsigned CREATE with one input per issuer.
// asset becomes {"data": asset}.
func MakeCreateTransaction(asset, metadata Payload, outputs []Output, issuers ...string) (Transaction, error) {
	if len(issuers) == 0 {
		return Transaction{}, txerr.New(txerr.KindInvalidTx, "TX-TX-001", "create requires at least one issuer")
	}
	inputs := make([]Input, len(issuers))
	for i, issuer := range issuers {
		inputs[i] = Input{Fulfills: NoFulfills(), OwnersBefore: []string{issuer}}
	}
	return Transaction{
		Asset:     map[string]any{"data": asset},
		Inputs:    inputs,
		Metadata:  metadata,
		Operation: OperationCreate,
		Outputs:   append([]Output(nil), outputs...),
		Version:   Version,
	}, nil
}

// MakeTransferTransaction builds an unsigned TRANSFER spending unspent. Every
// spent transaction must already carry an id and all must share one asset.
func MakeTransferTransaction(unspent []UnspentOutput, outputs []Output, metadata Payload) (Transaction, error) {
	if len(unspent) == 0 {
		return Transaction{}, txerr.New(txerr.KindInvalidTx, "TX-TX-002", "transfer requires at least one unspent output")
	}
	var assetID string
	inputs := make([]Input, len(unspent))
	for i, u := range unspent {
		if u.Tx.ID == nil || *u.Tx.ID == "" {
			return Transaction{}, txerr.New(txerr.KindInvalidTx, "TX-TX-003",
				fmt.Sprintf("unspent[%d]: source transaction has no id", i))
		}
		if u.OutputIndex < 0 || u.OutputIndex >= len(u.Tx.Outputs) {
			return Transaction{}, txerr.New(txerr.KindInvalidTx, "TX-TX-004",
				fmt.Sprintf("unspent[%d]: output index %d out of range", i, u.OutputIndex))
		}
		id, err := u.Tx.AssetID()
		if err != nil {
			return Transaction{}, err
		}
		if i == 0 {
			assetID = id
		} else if id != assetID {
			return Transaction{}, txerr.New(txerr.KindInvalidTx, "TX-TX-005",
				fmt.Sprintf("unspent[%d]: asset %s differs from %s", i, id, assetID))
		}
		inputs[i] = Input{
			Fulfills:     Spends(*u.Tx.ID, u.OutputIndex),
			OwnersBefore: cloneStrings(u.Tx.Outputs[u.OutputIndex].PublicKeys),
		}
	}
	return Transaction{
		Asset:     map[string]any{"id": assetID},
		Inputs:    inputs,
		Metadata:  metadata,
		Operation: OperationTransfer,
		Outputs:   append([]Output(nil), outputs...),
		Version:   Version,
	}, nil
}

// AssetID returns the id of the asset t moves: its own id for a CREATE, the
// linked asset id for a TRANSFER.
func (t Transaction) AssetID() (string, error) {
	switch t.Operation {
	case OperationCreate:
		if t.ID == nil || *t.ID == "" {
			return "", txerr.New(txerr.KindInvalidTx, "TX-TX-003", "create transaction has no id")
		}
		return *t.ID, nil
	case OperationTransfer:
		if m, ok := t.Asset.(map[string]any); ok {
			if id, ok := m["id"].(string); ok && id != "" {
				return id, nil
			}
		}
		return "", txerr.New(txerr.KindInvalidTx, "TX-TX-006", "transfer asset has no id")
	default:
		return "", txerr.New(txerr.KindInvalidTx, "TX-TX-010",
			fmt.Sprintf("unknown operation %q", t.Operation))
	}
}
