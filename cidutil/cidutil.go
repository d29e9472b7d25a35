// Package cidutil maps stored transaction bodies to content identifiers.
//
// A transaction body is the canonical serialization of a signed transaction
// with its id null. Its CID is CIDv1 with the raw codec and a sha3-256
// multihash, so the multihash digest is exactly the transaction id.
package cidutil

import (
	"encoding/hex"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"ledgertx.io/ledgertx/hashutil"
)

// Sum returns the CIDv1 (raw + sha3-256) of data.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA3_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String is Sum rendered as a string, or "" if hashing fails.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// FromTxID returns the CID whose digest is the given transaction id.
func FromTxID(txID string) (cid.Cid, error) {
	digest, err := hashutil.DecodeHex32(txID)
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Encode(digest[:], multihash.SHA3_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// TxID returns the transaction id carried by id. id must be a raw sha3-256 CID.
func TxID(id cid.Cid) (string, error) {
	if !id.Defined() {
		return "", fmt.Errorf("cidutil: undefined cid")
	}
	if id.Type() != cid.Raw {
		return "", fmt.Errorf("cidutil: codec %#x is not raw", id.Type())
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return "", err
	}
	if dec.Code != multihash.SHA3_256 || len(dec.Digest) != 32 {
		return "", fmt.Errorf("cidutil: multihash %s is not sha3-256", multihash.Codes[dec.Code])
	}
	return hex.EncodeToString(dec.Digest), nil
}

// Verify reports whether data hashes to id.
func Verify(id cid.Cid, data []byte) bool {
	got, err := Sum(data)
	return err == nil && got.Equals(id)
}
