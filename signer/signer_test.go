package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/keys"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txerr"
)

const (
	aliceSeed = "8hiZ8FPQLQnmFqXg8T1L3tgkJvLPeZXnGuThprDDJtQR"
	alicePub  = "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"

	createDigest      = "5b6e36766b0e6a72b04c121eae6445f10d07646ecd3413640580d3d56ebfefae"
	createFulfillment = "pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUC8BRcfa8Lk1-g9jO5oxoxDD8OsocrCBzkOixtFMNc3nd-jopXGGxSIjSlWwzVZl2zB8tYcAEOiV-BgSpZM8_UL"
	createID          = "db352f3fd363e7a900efe68889982cb83e951d85d1e42ac53003ef0686d5437c"

	transferDigest      = "e6b9fb2955d55aa46a7ff0906612e0cb1d4b55527093abc555116739d849f9c6"
	transferFulfillment = "pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUBNcpBir0GbfTPFbaWSteIxzjFNCMI8oBWeZ1tBJb-hoy5KXdTma3MSp66G3T9-oHd46ST4c8GhQEXrV4s57EsB"
	transferID          = "c638570336cc3094d894b8128f1d363eaeac8919dee550bf59b903214067246f"

	// Recorded by the reference driver: an unsigned CREATE in canonical form
	// and the SHA3-256 of those bytes.
	referenceCanonicalCreate = `{"asset":{"data":{"kyc":{"dob":"7/19/1988 12:00:00 AM +05:00","nab":"Hang MioLoi","pob":"CN","user_hash":"5c9b0ddd16f0d6471c661c0e"}}},"id":null,"inputs":[{"fulfillment":null,"fulfills":null,"owners_before":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"metadata":{"Error":null,"Status":"A","Transaction":null},"operation":"CREATE","outputs":[{"amount":"1","condition":{"details":{"public_key":"GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF","type":"ed25519-sha-256"},"uri":"ni:///sha-256;GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF?fpt=ed25519-sha-256&cost=131072"},"public_keys":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"version":"2.0"}`
	referenceCreateDigest    = "38f4e09c71930ad235bf89f9772845510832a20ae54cfa1a3ab766531b87837a"
)

func referenceCreate(t *testing.T) tx.Transaction {
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
	created, err := tx.MakeCreateTransaction(asset, metadata, []tx.Output{tx.MakeOutput(cond, "1")}, alicePub)
	require.NoError(t, err)
	return created
}

func TestSign_CreateVector(t *testing.T) {
	unsigned := referenceCreate(t)

	digest, err := SigningDigest(unsigned, 0)
	require.NoError(t, err)
	assert.Equal(t, createDigest, hex.EncodeToString(digest[:]))

	signed, err := New().Sign(unsigned, []string{aliceSeed})
	require.NoError(t, err)
	require.NotNil(t, signed.ID)
	assert.Equal(t, createID, *signed.ID)
	require.NotNil(t, signed.Inputs[0].Fulfillment)
	assert.Equal(t, createFulfillment, *signed.Inputs[0].Fulfillment)

	f, err := ccond.ParseFulfillmentURI(*signed.Inputs[0].Fulfillment)
	require.NoError(t, err)
	assert.True(t, f.Validate(digest[:]))

	require.NoError(t, New().Verify(signed))
}

func TestSigningDigest_ReferenceCreate(t *testing.T) {
	parsed, err := tx.Parse([]byte(referenceCanonicalCreate))
	require.NoError(t, err)

	msg, err := SigningMessage(parsed, 0)
	require.NoError(t, err)
	assert.Equal(t, referenceCanonicalCreate, string(msg))

	digest, err := SigningDigest(parsed, 0)
	require.NoError(t, err)
	assert.Equal(t, referenceCreateDigest, hex.EncodeToString(digest[:]))
}

func TestSign_TransferVector(t *testing.T) {
	created, err := New().Sign(referenceCreate(t), []string{aliceSeed})
	require.NoError(t, err)

	transfer, err := tx.MakeTransferTransaction(
		[]tx.UnspentOutput{{Tx: created, OutputIndex: 0}},
		created.Outputs,
		map[string]any{"note": "transfer"},
	)
	require.NoError(t, err)

	msg, err := SigningMessage(transfer, 0)
	require.NoError(t, err)
	base, err := canonical.Marshal(transfer)
	require.NoError(t, err)
	assert.Equal(t, string(base)+createID+"0", string(msg))

	digest, err := SigningDigest(transfer, 0)
	require.NoError(t, err)
	assert.Equal(t, transferDigest, hex.EncodeToString(digest[:]))

	signed, err := New().Sign(transfer, []string{aliceSeed})
	require.NoError(t, err)
	assert.Equal(t, transferID, *signed.ID)
	assert.Equal(t, transferFulfillment, *signed.Inputs[0].Fulfillment)
	require.NoError(t, New().Verify(signed))
}

func TestSign_ExpandedPrivateKey(t *testing.T) {
	seed, err := keys.ParseSeed(aliceSeed)
	require.NoError(t, err)
	expanded := hashutil.Base58Encode(ed25519.NewKeyFromSeed(seed))

	signed, err := New().Sign(referenceCreate(t), []string{expanded})
	require.NoError(t, err)
	assert.Equal(t, createID, *signed.ID)
}

func TestSign_DoesNotMutateInput(t *testing.T) {
	unsigned := referenceCreate(t)
	before, err := canonical.Marshal(unsigned)
	require.NoError(t, err)

	_, err = New().Sign(unsigned, []string{aliceSeed})
	require.NoError(t, err)

	after, err := canonical.Marshal(unsigned)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Nil(t, unsigned.ID)
	assert.Nil(t, unsigned.Inputs[0].Fulfillment)
}

func TestSign_Deterministic(t *testing.T) {
	a, err := New().Sign(referenceCreate(t), []string{aliceSeed})
	require.NoError(t, err)
	b, err := New(WithParallelism(1)).Sign(referenceCreate(t), []string{aliceSeed})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSign_MultipleInputsParallel(t *testing.T) {
	bob, err := keys.Generate(&counterReader{})
	require.NoError(t, err)

	cond, err := tx.MakeEd25519Condition(bob.PublicKey)
	require.NoError(t, err)
	unsigned, err := tx.MakeCreateTransaction(nil, nil, []tx.Output{tx.MakeOutput(cond, "2")}, alicePub, bob.PublicKey, alicePub)
	require.NoError(t, err)
	privs := []string{aliceSeed, bob.PrivateKey, aliceSeed}

	par, err := New(WithParallelism(0)).Sign(unsigned, privs)
	require.NoError(t, err)
	seq, err := New(WithParallelism(1)).Sign(unsigned, privs)
	require.NoError(t, err)
	assert.Equal(t, *seq.ID, *par.ID)
	for i := range par.Inputs {
		assert.Equal(t, *seq.Inputs[i].Fulfillment, *par.Inputs[i].Fulfillment)
	}
	require.NoError(t, New().Verify(par))
}

func TestSign_InputKeyMismatch(t *testing.T) {
	unsigned := referenceCreate(t)

	_, err := New().Sign(unsigned, nil)
	require.Error(t, err)
	assert.True(t, txerr.IsKind(err, txerr.KindInputKeyMismatch))
	assert.Equal(t, "TX-SIG-101", txerr.RuleID(err))

	_, err = New().Sign(unsigned, []string{aliceSeed, aliceSeed})
	require.Error(t, err)
	assert.Equal(t, "TX-SIG-101", txerr.RuleID(err))

	other, err := keys.Generate(&counterReader{})
	require.NoError(t, err)
	_, err = New().Sign(unsigned, []string{other.PrivateKey})
	require.Error(t, err)
	assert.True(t, txerr.IsKind(err, txerr.KindInputKeyMismatch))
	assert.Equal(t, "TX-SIG-102", txerr.RuleID(err))
}

func TestSign_BadKeyEncoding(t *testing.T) {
	_, err := New().Sign(referenceCreate(t), []string{"not-base58-0OIl"})
	require.Error(t, err)
	assert.True(t, txerr.IsKind(err, txerr.KindEncoding))
}

func TestSign_SelfVerificationFailureIsAtomic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := New(WithLogger(zap.New(core)))
	var calls atomic.Int32
	s.sign = func(priv ed25519.PrivateKey, msg []byte) []byte {
		sig := ed25519.Sign(priv, msg)
		if calls.Add(1) == 2 {
			sig[0] ^= 0xff
		}
		return sig
	}

	bob, err := keys.Generate(&counterReader{})
	require.NoError(t, err)
	cond, err := tx.MakeEd25519Condition(alicePub)
	require.NoError(t, err)
	unsigned, err := tx.MakeCreateTransaction(nil, nil, []tx.Output{tx.MakeOutput(cond, "")}, alicePub, bob.PublicKey)
	require.NoError(t, err)

	signed, err := s.Sign(unsigned, []string{aliceSeed, bob.PrivateKey})
	require.Error(t, err)
	assert.True(t, txerr.IsKind(err, txerr.KindSignatureVerification))
	assert.Equal(t, "TX-SIG-201", txerr.RuleID(err))
	assert.Equal(t, tx.Transaction{}, signed)
	assert.Equal(t, 1, logs.FilterMessage("signing failed").Len())
}

func TestVerify_DetectsTampering(t *testing.T) {
	signed, err := New().Sign(referenceCreate(t), []string{aliceSeed})
	require.NoError(t, err)

	t.Run("payload", func(t *testing.T) {
		c := signed.Clone()
		c.Metadata = map[string]any{"Status": "B"}
		err := New().Verify(c)
		require.Error(t, err)
		assert.Equal(t, "TX-SIG-202", txerr.RuleID(err))
	})
	t.Run("id", func(t *testing.T) {
		c := signed.Clone()
		bad := transferID
		c.ID = &bad
		err := New().Verify(c)
		require.Error(t, err)
		assert.Equal(t, "TX-SIG-301", txerr.RuleID(err))
	})
	t.Run("missing id", func(t *testing.T) {
		c := signed.Clone()
		c.ID = nil
		require.Error(t, New().Verify(c))
	})
	t.Run("missing fulfillment", func(t *testing.T) {
		c := signed.Clone()
		c.Inputs[0].Fulfillment = nil
		err := New().Verify(c)
		require.Error(t, err)
		assert.Equal(t, "TX-SIG-203", txerr.RuleID(err))
	})
	t.Run("foreign owner", func(t *testing.T) {
		c := signed.Clone()
		other, err := keys.Generate(&counterReader{})
		require.NoError(t, err)
		c.Inputs[0].OwnersBefore = []string{other.PublicKey}
		err = New().Verify(c)
		require.Error(t, err)
		assert.True(t, txerr.IsKind(err, txerr.KindInputKeyMismatch))
	})
}

func TestComputeID_Idempotent(t *testing.T) {
	signed, err := New().Sign(referenceCreate(t), []string{aliceSeed})
	require.NoError(t, err)
	id, err := ComputeID(signed)
	require.NoError(t, err)
	assert.Equal(t, *signed.ID, id)
	id, err = ComputeID(signed)
	require.NoError(t, err)
	assert.Equal(t, *signed.ID, id)
}

func TestSigningMessage_IndexRange(t *testing.T) {
	_, err := SigningMessage(referenceCreate(t), 1)
	require.Error(t, err)
	assert.Equal(t, "TX-SIG-401", txerr.RuleID(err))
}

type counterReader struct{ b byte }

func (r *counterReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b += 7
	}
	return len(p), nil
}
