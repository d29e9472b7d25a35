// Package hashutil holds the digest and text-encoding primitives used by the
// signing pipeline.
//
// SHA3-256 names transactions and produces per-input signing digests.
// SHA-256 fingerprints crypto-conditions. The two are fixed by the ledger
// protocol per purpose and are not interchangeable.
package hashutil

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"ledgertx.io/ledgertx/txerr"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA3_256 returns the SHA3-256 digest of data.
func SHA3_256(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// SHA3_256Hex returns the lowercase hex SHA3-256 digest of data.
func SHA3_256Hex(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Base58Encode encodes data with the Bitcoin alphabet.
func Base58Encode(data []byte) string {
	return base58.Encode(data)
}

// Base58Decode decodes a Bitcoin-alphabet Base58 string.
func Base58Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, txerr.New(txerr.KindEncoding, "TX-ENC-001", "empty base58 string")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, txerr.Wrap(txerr.KindEncoding, "TX-ENC-002", "invalid base58", err)
	}
	return b, nil
}

// Base64URLEncode encodes data as unpadded base64url.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes base64url text. Trailing padding is tolerated.
func Base64URLDecode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, txerr.Wrap(txerr.KindEncoding, "TX-ENC-003", "invalid base64url", err)
	}
	return b, nil
}

// DecodeFixed decodes a Base58 string that must be exactly n bytes long.
func DecodeFixed(s string, n int, what string) ([]byte, error) {
	b, err := Base58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, txerr.New(txerr.KindEncoding, "TX-ENC-004",
			fmt.Sprintf("%s must be %d bytes, got %d", what, n, len(b)))
	}
	return b, nil
}

// DecodePublicKey decodes a Base58 Ed25519 public key.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := DecodeFixed(s, ed25519.PublicKeySize, "ed25519 public key")
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(b), nil
}

// EncodePublicKey encodes an Ed25519 public key as Base58.
func EncodePublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", txerr.New(txerr.KindEncoding, "TX-ENC-004",
			fmt.Sprintf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l))
	}
	return base58.Encode(pub), nil
}

// DecodeHex32 decodes a 64-character lowercase hex digest such as a
// transaction id.
func DecodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) != 64 || strings.ToLower(s) != s {
		return out, txerr.New(txerr.KindEncoding, "TX-ENC-005",
			fmt.Sprintf("digest must be 64 lowercase hex characters, got %q", s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return out, txerr.Wrap(txerr.KindEncoding, "TX-ENC-005", "invalid hex digest", err)
	}
	return out, nil
}
