package model

import (
	"encoding/hex"
	"slices"

	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/tx"
)

// Inspect verifies signed with v and reports the outcome per input. The
// overall verdict is v.Verify; the input reports explain it.
func Inspect(signed tx.Transaction, v *signer.Signer) VerifyReport {
	if v == nil {
		v = signer.New()
	}
	rep := VerifyReport{
		ID:        signed.IDString(),
		Operation: signed.Operation,
		Inputs:    make([]InputReport, 0, len(signed.Inputs)),
	}
	if id, err := signer.ComputeID(signed); err == nil {
		rep.ComputedID = id
	}
	for i, in := range signed.Inputs {
		ir := InputReport{
			Index:        i,
			OwnersBefore: append([]string(nil), in.OwnersBefore...),
		}
		if ref, ok := in.Fulfills.Get(); ok {
			ir.Fulfills = &OutputRef{TransactionID: ref.TransactionID, OutputIndex: ref.OutputIndex}
		}
		digest, err := signer.SigningDigest(signed, i)
		if err != nil {
			ir.Reason = err.Error()
			rep.Inputs = append(rep.Inputs, ir)
			continue
		}
		ir.Digest = hex.EncodeToString(digest[:])
		ir.Valid, ir.PublicKey, ir.Reason = checkInput(in, digest[:])
		rep.Inputs = append(rep.Inputs, ir)
	}
	if err := v.Verify(signed); err != nil {
		rep.Error = FromError(err)
	} else {
		rep.Valid = true
	}
	return rep
}

func checkInput(in tx.Input, digest []byte) (bool, string, string) {
	if in.Fulfillment == nil {
		return false, "", "missing fulfillment"
	}
	f, err := ccond.ParseFulfillmentURI(*in.Fulfillment)
	if err != nil {
		return false, "", err.Error()
	}
	pub := hashutil.Base58Encode(f.PublicKey)
	if !slices.Contains(in.OwnersBefore, pub) {
		return false, pub, "key is not an owner before"
	}
	if !f.Validate(digest) {
		return false, pub, "signature does not verify"
	}
	return true, pub, ""
}
