package ccond

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/txerr"
)

const uriPrefix = "ni:///sha-256;"

// FingerprintContents returns the DER fingerprint contents
//
//	SEQUENCE { publicKey [0] OCTET STRING (32) }
func FingerprintContents(pub []byte) ([]byte, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return nil, txerr.New(txerr.KindEncoding, "TX-CC-001",
			fmt.Sprintf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l))
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(tag0, func(b *cryptobyte.Builder) { b.AddBytes(pub) })
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, txerr.Wrap(txerr.KindEncoding, "TX-CC-003", "DER build failed", err)
	}
	return out, nil
}

// Fingerprint returns sha256 over the fingerprint contents of pub.
func Fingerprint(pub []byte) ([32]byte, error) {
	contents, err := FingerprintContents(pub)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(contents), nil
}

// ConditionURI returns
//
//	ni:///sha-256;<base64url(fingerprint)>?fpt=ed25519-sha-256&cost=131072
func ConditionURI(pub []byte) (string, error) {
	fp, err := Fingerprint(pub)
	if err != nil {
		return "", err
	}
	return formatURI(fp[:]), nil
}

// ConditionURIFromBase58 is ConditionURI for a Base58 public key string.
func ConditionURIFromBase58(pub string) (string, error) {
	b, err := hashutil.DecodePublicKey(pub)
	if err != nil {
		return "", err
	}
	return ConditionURI(b)
}

func formatURI(fp []byte) string {
	return uriPrefix + hashutil.Base64URLEncode(fp) + "?fpt=" + TypeName + "&cost=" + strconv.Itoa(Cost)
}

// Condition is the parsed form of an ed25519-sha-256 condition.
type Condition struct {
	Fingerprint [32]byte
	Cost        int64
}

// URI returns the ni: form of c.
func (c Condition) URI() string {
	return uriPrefix + hashutil.Base64URLEncode(c.Fingerprint[:]) + "?fpt=" + TypeName + "&cost=" + strconv.FormatInt(c.Cost, 10)
}

// Matches reports whether pub hashes to c's fingerprint.
func (c Condition) Matches(pub []byte) bool {
	fp, err := Fingerprint(pub)
	if err != nil {
		return false
	}
	return bytes.Equal(fp[:], c.Fingerprint[:])
}

// EncodeCondition returns the binary condition
//
//	[4] { fingerprint [0] OCTET STRING (32), cost [1] INTEGER }
func EncodeCondition(pub []byte) ([]byte, error) {
	fp, err := Fingerprint(pub)
	if err != nil {
		return nil, err
	}
	var b cryptobyte.Builder
	b.AddASN1(tagType, func(b *cryptobyte.Builder) {
		b.AddASN1(tag0, func(b *cryptobyte.Builder) { b.AddBytes(fp[:]) })
		b.AddASN1Int64WithTag(Cost, tag1)
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, txerr.Wrap(txerr.KindEncoding, "TX-CC-003", "DER build failed", err)
	}
	return out, nil
}

// DecodeCondition parses a binary ed25519-sha-256 condition.
func DecodeCondition(der []byte) (Condition, error) {
	in := cryptobyte.String(der)
	var body, fp cryptobyte.String
	var cost int64
	if !in.ReadASN1(&body, tagType) || !in.Empty() {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-020", "not an ed25519-sha-256 condition")
	}
	if !body.ReadASN1(&fp, tag0) || !body.ReadASN1Int64WithTag(&cost, tag1) || !body.Empty() {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-021", "malformed ed25519-sha-256 condition body")
	}
	if len(fp) != sha256.Size {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-022", "condition fingerprint must be 32 bytes")
	}
	var c Condition
	copy(c.Fingerprint[:], fp)
	c.Cost = cost
	return c, nil
}

// ParseConditionURI parses the ni: form. The fingerprint type must be
// ed25519-sha-256 and the cost must equal Cost.
func ParseConditionURI(uri string) (Condition, error) {
	rest, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-030", "condition URI must start with "+uriPrefix)
	}
	fpText, query, ok := strings.Cut(rest, "?")
	if !ok {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-031", "condition URI is missing its query")
	}
	fp, err := hashutil.Base64URLDecode(fpText)
	if err != nil {
		return Condition{}, err
	}
	if len(fp) != sha256.Size {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-022", "condition fingerprint must be 32 bytes")
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return Condition{}, txerr.Wrap(txerr.KindEncoding, "TX-CC-031", "invalid condition URI query", err)
	}
	if q.Get("fpt") != TypeName {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-032", "unsupported fingerprint type "+strconv.Quote(q.Get("fpt")))
	}
	cost, err := strconv.ParseInt(q.Get("cost"), 10, 64)
	if err != nil || cost != Cost {
		return Condition{}, txerr.New(txerr.KindEncoding, "TX-CC-033", "condition cost must be "+strconv.Itoa(Cost))
	}
	var c Condition
	copy(c.Fingerprint[:], fp)
	c.Cost = cost
	return c, nil
}
