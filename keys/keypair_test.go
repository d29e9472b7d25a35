package keys

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

const (
	aliceSeed = "8hiZ8FPQLQnmFqXg8T1L3tgkJvLPeZXnGuThprDDJtQR"
	alicePub  = "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func TestFromSeed_Vector(t *testing.T) {
	seed, err := ParseSeed(aliceSeed)
	require.NoError(t, err)
	kp, err := FromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, alicePub, kp.PublicKey)
	assert.Equal(t, aliceSeed, kp.PrivateKey)

	pub, err := PublicKeyOf(aliceSeed)
	require.NoError(t, err)
	assert.Equal(t, alicePub, pub)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(&deterministicReader{})
	require.NoError(t, err)
	b, err := Generate(&deterministicReader{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	pub, err := PublicKeyOf(a.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey, pub)

	_, err = Generate(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestDecodePrivateKey_ExpandedForm(t *testing.T) {
	seed, err := ParseSeed(aliceSeed)
	require.NoError(t, err)
	pub, err := hashutil.DecodePublicKey(alicePub)
	require.NoError(t, err)

	expanded := append(append([]byte{}, seed...), pub...)
	priv, err := DecodePrivateKey(hashutil.Base58Encode(expanded))
	require.NoError(t, err)
	assert.Equal(t, ed25519.NewKeyFromSeed(seed), priv)

	expanded[ed25519.PrivateKeySize-1] ^= 0xff
	_, err = DecodePrivateKey(hashutil.Base58Encode(expanded))
	require.Error(t, err)
	assert.Equal(t, "TX-KEY-002", txerr.RuleID(err))
}

func TestDecodePrivateKey_Rejects(t *testing.T) {
	_, err := DecodePrivateKey(hashutil.Base58Encode(make([]byte, 31)))
	require.Error(t, err)
	assert.Equal(t, "TX-KEY-001", txerr.RuleID(err))

	_, err = DecodePrivateKey("0OIl")
	require.Error(t, err)
	assert.True(t, txerr.IsKind(err, txerr.KindEncoding))
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
	Wipe(nil)
}
