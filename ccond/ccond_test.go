package ccond

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

const vectorPublicKey = "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"

// Fixed signature bytes recorded alongside the reference fulfillment vectors.
var vectorSignature = []byte{
	173, 222, 178, 220, 228, 60, 234, 83, 210, 61, 81, 37, 147, 224, 208, 219,
	126, 150, 42, 230, 73, 130, 157, 210, 65, 170, 74, 51, 233, 93, 42, 160,
	73, 153, 123, 70, 160, 162, 98, 14, 204, 38, 246, 45, 47, 10, 117, 199,
	76, 1, 12, 34, 99, 5, 109, 245, 3, 205, 253, 60, 69, 15, 55, 8,
}

const (
	vectorFulfillmentURI  = "pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUCt3rLc5DzqU9I9USWT4NDbfpYq5kmCndJBqkoz6V0qoEmZe0agomIOzCb2LS8KdcdMAQwiYwVt9QPN_TxFDzcI"
	referenceFulfillment  = "pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUDhORNF-ZyNX9_Ymdukyxit-tWFur2OFZokgxD97_Mzt7C67cDhL9P-FelNFJV0srFaGxmw5fQ1kRYTemee3P4J"
	vectorConditionURI    = "ni:///sha-256;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I?fpt=ed25519-sha-256&cost=131072"
	vectorConditionBinary = "a4278020b00757aa89c6417a9c0df84547c25c8531189415ef9f5e59fd09c4395fbc8f928103020000"

	// Produced by signing the reference CREATE transaction with the vector seed.
	signedDigestHex      = "5b6e36766b0e6a72b04c121eae6445f10d07646ecd3413640580d3d56ebfefae"
	signedFulfillmentURI = "pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUC8BRcfa8Lk1-g9jO5oxoxDD8OsocrCBzkOixtFMNc3nd-jopXGGxSIjSlWwzVZl2zB8tYcAEOiV-BgSpZM8_UL"
)

func vectorPub(t *testing.T) []byte {
	t.Helper()
	pub, err := hashutil.DecodePublicKey(vectorPublicKey)
	require.NoError(t, err)
	return pub
}

func TestEncodeFulfillment_Layout(t *testing.T) {
	pub := vectorPub(t)
	der, err := EncodeFulfillment(pub, vectorSignature)
	require.NoError(t, err)
	require.Len(t, der, 102)

	assert.Equal(t, []byte{0xa4, 0x64, 0x80, 0x20}, der[:4])
	assert.Equal(t, pub, der[4:36])
	assert.Equal(t, []byte{0x81, 0x40}, der[36:38])
	assert.Equal(t, vectorSignature, der[38:])
}

func TestFulfillmentURI_FixedVector(t *testing.T) {
	uri, err := FulfillmentURI(vectorPub(t), vectorSignature)
	require.NoError(t, err)
	assert.Equal(t, vectorFulfillmentURI, uri)
}

func TestParseFulfillmentURI_ReferenceOutput(t *testing.T) {
	f, err := ParseFulfillmentURI(referenceFulfillment)
	require.NoError(t, err)
	assert.Equal(t, vectorPub(t), []byte(f.PublicKey))
	assert.Len(t, f.Signature, 64)

	uri, err := f.URI()
	require.NoError(t, err)
	assert.Equal(t, referenceFulfillment, uri, "re-encoding must be byte-identical")
}

func TestFulfillment_ValidateSignedDigest(t *testing.T) {
	f, err := ParseFulfillmentURI(signedFulfillmentURI)
	require.NoError(t, err)
	digest, err := hex.DecodeString(signedDigestHex)
	require.NoError(t, err)

	assert.True(t, f.Validate(digest))

	digest[0] ^= 0x01
	assert.False(t, f.Validate(digest))

	cond, err := f.ConditionURI()
	require.NoError(t, err)
	assert.Equal(t, vectorConditionURI, cond)
}

func TestEncodeFulfillment_RejectsLengths(t *testing.T) {
	pub := vectorPub(t)
	_, err := EncodeFulfillment(pub[:31], vectorSignature)
	assert.Equal(t, "TX-CC-001", txerr.RuleID(err))
	_, err = EncodeFulfillment(pub, vectorSignature[:63])
	assert.Equal(t, "TX-CC-002", txerr.RuleID(err))
	assert.True(t, txerr.IsEncoding(err))
}

func TestDecodeFulfillment_Rejects(t *testing.T) {
	good, err := EncodeFulfillment(vectorPub(t), vectorSignature)
	require.NoError(t, err)

	wrongTag := append([]byte(nil), good...)
	wrongTag[0] = 0xa3

	trailing := append(append([]byte(nil), good...), 0x00)

	longForm := append([]byte{0xa4, 0x81, 0x64}, good[2:]...)

	for name, in := range map[string][]byte{
		"empty":     nil,
		"wrong tag": wrongTag,
		"trailing":  trailing,
		"long form": longForm,
		"truncated": good[:50],
	} {
		_, err := DecodeFulfillment(in)
		require.Error(t, err, name)
		assert.True(t, txerr.IsEncoding(err), name)
	}

	_, err = ParseFulfillmentURI("not base64!")
	assert.True(t, txerr.IsEncoding(err))
}

func TestConditionURI_FixedVector(t *testing.T) {
	uri, err := ConditionURI(vectorPub(t))
	require.NoError(t, err)
	assert.Equal(t, vectorConditionURI, uri)

	uri, err = ConditionURIFromBase58(vectorPublicKey)
	require.NoError(t, err)
	assert.Equal(t, vectorConditionURI, uri)

	contents, err := FingerprintContents(vectorPub(t))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x30, 0x22, 0x80, 0x20}, contents[:4])
}

func TestEncodeCondition_FixedVector(t *testing.T) {
	der, err := EncodeCondition(vectorPub(t))
	require.NoError(t, err)
	assert.Equal(t, vectorConditionBinary, hex.EncodeToString(der))

	c, err := DecodeCondition(der)
	require.NoError(t, err)
	assert.Equal(t, int64(Cost), c.Cost)
	assert.Equal(t, vectorConditionURI, c.URI())
	assert.True(t, c.Matches(vectorPub(t)))
}

func TestParseConditionURI(t *testing.T) {
	c, err := ParseConditionURI(vectorConditionURI)
	require.NoError(t, err)
	assert.True(t, c.Matches(vectorPub(t)))
	assert.Equal(t, vectorConditionURI, c.URI())

	for _, bad := range []string{
		"ni:///sha-512;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I?fpt=ed25519-sha-256&cost=131072",
		"ni:///sha-256;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I",
		"ni:///sha-256;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I?fpt=prefix-sha-256&cost=131072",
		"ni:///sha-256;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I?fpt=ed25519-sha-256&cost=1",
		"ni:///sha-256;AAAA?fpt=ed25519-sha-256&cost=131072",
	} {
		_, err := ParseConditionURI(bad)
		require.Error(t, err, bad)
		assert.True(t, txerr.IsEncoding(err), bad)
	}
}
