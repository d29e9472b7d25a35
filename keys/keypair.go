package keys

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"io"

	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

// KeyPair is a Base58 encoded Ed25519 key pair. PrivateKey holds the seed.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Generate creates a key pair from rand.
func Generate(rand io.Reader) (KeyPair, error) {
	seed := make([]byte, ed25519.SeedSize)
	defer Wipe(seed)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return KeyPair{}, fmt.Errorf("read seed: %w", err)
	}
	return FromSeed(seed)
}

// FromSeed returns the key pair for a 32-byte seed.
func FromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, txerr.New(txerr.KindEncoding, "TX-KEY-001",
			fmt.Sprintf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	defer Wipe(priv)
	pub, err := hashutil.EncodePublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pub, PrivateKey: hashutil.Base58Encode(seed)}, nil
}

// DecodePrivateKey decodes a Base58 private key into its expanded form.
// A 64-byte input must carry the public key matching its seed half.
func DecodePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := hashutil.Base58Decode(s)
	if err != nil {
		return nil, err
	}
	defer Wipe(raw)
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if subtle.ConstantTimeCompare(priv[ed25519.SeedSize:], raw[ed25519.SeedSize:]) != 1 {
			Wipe(priv)
			return nil, txerr.New(txerr.KindEncoding, "TX-KEY-002",
				"expanded private key does not match its seed")
		}
		return priv, nil
	default:
		return nil, txerr.New(txerr.KindEncoding, "TX-KEY-001",
			fmt.Sprintf("private key must be %d or %d bytes, got %d",
				ed25519.SeedSize, ed25519.PrivateKeySize, len(raw)))
	}
}

// PublicKeyOf returns the Base58 public key for a Base58 private key.
func PublicKeyOf(privB58 string) (string, error) {
	priv, err := DecodePrivateKey(privB58)
	if err != nil {
		return "", err
	}
	defer Wipe(priv)
	return hashutil.EncodePublicKey(priv.Public().(ed25519.PublicKey))
}

// Wipe zeroes b.
func Wipe(b []byte) {
	clear(b)
}
