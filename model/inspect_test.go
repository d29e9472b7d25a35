package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txerr"
)

const (
	aliceSeed    = "8hiZ8FPQLQnmFqXg8T1L3tgkJvLPeZXnGuThprDDJtQR"
	alicePub     = "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"
	createDigest = "5b6e36766b0e6a72b04c121eae6445f10d07646ecd3413640580d3d56ebfefae"
	createID     = "db352f3fd363e7a900efe68889982cb83e951d85d1e42ac53003ef0686d5437c"
)

func signedCreate(t *testing.T) tx.Transaction {
	t.Helper()
	cond, err := tx.MakeEd25519Condition(alicePub)
	require.NoError(t, err)
	asset := map[string]any{"kyc": map[string]any{
		"user_hash": "5c9b0ddd16f0d6471c661c0e",
		"dob":       "7/19/1988 12:00:00 AM +05:00",
		"pob":       "CN",
		"nab":       "Hang MioLoi",
	}}
	metadata := map[string]any{"Status": "A", "Error": nil, "Transaction": nil}
	unsigned, err := tx.MakeCreateTransaction(asset, metadata, []tx.Output{tx.MakeOutput(cond, "1")}, alicePub)
	require.NoError(t, err)
	signed, err := signer.New().Sign(unsigned, []string{aliceSeed})
	require.NoError(t, err)
	return signed
}

func TestInspect_Valid(t *testing.T) {
	rep := Inspect(signedCreate(t), nil)
	assert.True(t, rep.Valid)
	assert.Nil(t, rep.Error)
	assert.Equal(t, createID, rep.ID)
	assert.Equal(t, createID, rep.ComputedID)
	require.Len(t, rep.Inputs, 1)
	assert.Equal(t, createDigest, rep.Inputs[0].Digest)
	assert.Equal(t, alicePub, rep.Inputs[0].PublicKey)
	assert.True(t, rep.Inputs[0].Valid)
	assert.Nil(t, rep.Inputs[0].Fulfills)
}

func TestInspect_TamperedMetadata(t *testing.T) {
	signed := signedCreate(t)
	signed.Metadata = map[string]any{"Status": "B"}

	rep := Inspect(signed, signer.New())
	assert.False(t, rep.Valid)
	require.NotNil(t, rep.Error)
	assert.Equal(t, ErrSignatureInvalid, rep.Error.Code)
	assert.Equal(t, "TX-SIG-202", rep.Error.RuleID)
	assert.False(t, rep.Inputs[0].Valid)
	assert.Equal(t, "signature does not verify", rep.Inputs[0].Reason)
	assert.NotEqual(t, rep.ID, rep.ComputedID)
}

func TestInspect_MissingFulfillment(t *testing.T) {
	signed := signedCreate(t)
	signed.Inputs[0].Fulfillment = nil
	rep := Inspect(signed, nil)
	assert.False(t, rep.Valid)
	assert.Equal(t, "TX-SIG-203", rep.Error.RuleID)
	assert.Equal(t, "missing fulfillment", rep.Inputs[0].Reason)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	tests := []struct {
		err  error
		code ErrorCode
	}{
		{txerr.New(txerr.KindEncoding, "TX-ENC-001", "bad"), ErrEncoding},
		{txerr.New(txerr.KindInputKeyMismatch, "TX-SIG-101", "bad"), ErrInputKeyMismatch},
		{txerr.New(txerr.KindInvalidTx, "TX-TX-010", "bad"), ErrInvalidTransaction},
		{fmt.Errorf("wrapped: %w", storage.ErrNotFound), ErrNotFound},
		{storage.ErrCIDMismatch, ErrCIDMismatch},
		{storage.ErrInvalidCID, ErrInvalidCID},
		{errors.New("other"), ErrInternal},
		{NewError(ErrInvalidRequest, "x"), ErrInvalidRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, FromError(tt.err).Code, tt.err.Error())
	}
	assert.Equal(t, "TX-SIG-101", FromError(txerr.New(txerr.KindInputKeyMismatch, "TX-SIG-101", "bad")).RuleID)
}
