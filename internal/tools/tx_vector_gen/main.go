// Command tx_vector_gen prints the reference CREATE and TRANSFER vectors used
// by the signer, txstore and CLI tests.
package main

import (
	"encoding/hex"
	"fmt"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/keys"
	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txstore"
)

const aliceSeed = "8hiZ8FPQLQnmFqXg8T1L3tgkJvLPeZXnGuThprDDJtQR"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	pub := must(keys.PublicKeyOf(aliceSeed))
	cond := must(tx.MakeEd25519Condition(pub))
	asset := map[string]any{"kyc": map[string]any{
		"user_hash": "5c9b0ddd16f0d6471c661c0e",
		"dob":       "7/19/1988 12:00:00 AM +05:00",
		"pob":       "CN",
		"nab":       "Hang MioLoi",
	}}
	metadata := map[string]any{"Status": "A", "Error": nil, "Transaction": nil}
	create := must(tx.MakeCreateTransaction(asset, metadata, []tx.Output{tx.MakeOutput(cond, "1")}, pub))

	s := signer.New()
	created := emit(s, "CREATE", create)

	transfer := must(tx.MakeTransferTransaction(
		[]tx.UnspentOutput{{Tx: created, OutputIndex: 0}},
		created.Outputs,
		map[string]any{"note": "transfer"},
	))
	emit(s, "TRANSFER", transfer)
}

func emit(s *signer.Signer, name string, unsigned tx.Transaction) tx.Transaction {
	digest := must(signer.SigningDigest(unsigned, 0))
	signed := must(s.Sign(unsigned, []string{aliceSeed}))
	body := must(txstore.Body(signed))
	id := must(cidutil.FromTxID(*signed.ID))

	fmt.Printf("%s_DIGEST=%s\n", name, hex.EncodeToString(digest[:]))
	fmt.Printf("%s_FULFILLMENT=%s\n", name, *signed.Inputs[0].Fulfillment)
	fmt.Printf("%s_ID=%s\n", name, *signed.ID)
	fmt.Printf("%s_CID=%s\n", name, id)
	fmt.Printf("---BEGIN %s BODY---\n%s\n---END---\n", name, body)
	fmt.Printf("---BEGIN %s SIGNED---\n%s\n---END---\n", name, must(canonical.Marshal(signed)))
	return signed
}
