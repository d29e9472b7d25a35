package ccond

import (
	"crypto/ed25519"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

const (
	// TypeName is the condition type name used in output details and URIs.
	TypeName = "ed25519-sha-256"
	// TypeID is the registered crypto-conditions type number, also the
	// context-specific CHOICE tag of fulfillments and conditions.
	TypeID = 4
	// Cost is the fixed cost of an ed25519-sha-256 condition.
	Cost = 131072
)

var (
	tagType = cbasn1.Tag(TypeID).ContextSpecific().Constructed()
	tag0    = cbasn1.Tag(0).ContextSpecific()
	tag1    = cbasn1.Tag(1).ContextSpecific()
)

// Ed25519Fulfillment is a decoded ed25519-sha-256 fulfillment.
type Ed25519Fulfillment struct {
	PublicKey ed25519.PublicKey
	Signature []byte
}

func checkLengths(pub, sig []byte) error {
	if l := len(pub); l != ed25519.PublicKeySize {
		return txerr.New(txerr.KindEncoding, "TX-CC-001",
			fmt.Sprintf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l))
	}
	if l := len(sig); l != ed25519.SignatureSize {
		return txerr.New(txerr.KindEncoding, "TX-CC-002",
			fmt.Sprintf("ed25519 signature must be %d bytes, got %d", ed25519.SignatureSize, l))
	}
	return nil
}

// EncodeFulfillment returns the DER encoding
//
//	[4] { publicKey [0] OCTET STRING (32), signature [1] OCTET STRING (64) }
func EncodeFulfillment(pub, sig []byte) ([]byte, error) {
	if err := checkLengths(pub, sig); err != nil {
		return nil, err
	}
	var b cryptobyte.Builder
	b.AddASN1(tagType, func(b *cryptobyte.Builder) {
		b.AddASN1(tag0, func(b *cryptobyte.Builder) { b.AddBytes(pub) })
		b.AddASN1(tag1, func(b *cryptobyte.Builder) { b.AddBytes(sig) })
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, txerr.Wrap(txerr.KindEncoding, "TX-CC-003", "DER build failed", err)
	}
	return out, nil
}

// FulfillmentURI returns the base64url (unpadded) form of the DER fulfillment.
func FulfillmentURI(pub, sig []byte) (string, error) {
	der, err := EncodeFulfillment(pub, sig)
	if err != nil {
		return "", err
	}
	return hashutil.Base64URLEncode(der), nil
}

// DecodeFulfillment parses a DER ed25519-sha-256 fulfillment.
// Non-minimal lengths, unknown tags and trailing bytes are rejected.
func DecodeFulfillment(der []byte) (Ed25519Fulfillment, error) {
	in := cryptobyte.String(der)
	var body, pub, sig cryptobyte.String
	if !in.ReadASN1(&body, tagType) || !in.Empty() {
		return Ed25519Fulfillment{}, txerr.New(txerr.KindEncoding, "TX-CC-010", "not an ed25519-sha-256 fulfillment")
	}
	if !body.ReadASN1(&pub, tag0) || !body.ReadASN1(&sig, tag1) || !body.Empty() {
		return Ed25519Fulfillment{}, txerr.New(txerr.KindEncoding, "TX-CC-011", "malformed ed25519-sha-256 fulfillment body")
	}
	if err := checkLengths(pub, sig); err != nil {
		return Ed25519Fulfillment{}, err
	}
	return Ed25519Fulfillment{
		PublicKey: append(ed25519.PublicKey(nil), []byte(pub)...),
		Signature: append([]byte(nil), []byte(sig)...),
	}, nil
}

// ParseFulfillmentURI decodes the base64url form produced by FulfillmentURI.
func ParseFulfillmentURI(uri string) (Ed25519Fulfillment, error) {
	der, err := hashutil.Base64URLDecode(uri)
	if err != nil {
		return Ed25519Fulfillment{}, err
	}
	return DecodeFulfillment(der)
}

// Encode returns the DER form of f.
func (f Ed25519Fulfillment) Encode() ([]byte, error) {
	return EncodeFulfillment(f.PublicKey, f.Signature)
}

// URI returns the base64url form of f.
func (f Ed25519Fulfillment) URI() (string, error) {
	return FulfillmentURI(f.PublicKey, f.Signature)
}

// Validate reports whether the embedded signature verifies for message
// under the embedded public key.
func (f Ed25519Fulfillment) Validate(message []byte) bool {
	if checkLengths(f.PublicKey, f.Signature) != nil {
		return false
	}
	return ed25519.Verify(f.PublicKey, message, f.Signature)
}

// ConditionURI returns the condition this fulfillment satisfies.
func (f Ed25519Fulfillment) ConditionURI() (string, error) {
	return ConditionURI(f.PublicKey)
}
