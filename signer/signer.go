// Package signer turns unsigned transactions into signed, identified ones.
//
// For each input the signing message is the canonical serialization of the
// unsigned transaction (id and every fulfillment null), followed by the spent
// transaction id and the decimal output index when the input spends an
// output. The SHA3-256 digest of that message is signed with Ed25519 and
// framed as an ed25519-sha-256 fulfillment. Once every input is filled in, the
// id is the SHA3-256 hex of the canonical signed transaction with id null.
//
// A Signer holds no mutable state and is safe for concurrent use.
package signer

import (
	"crypto/ed25519"
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/hashutil"
	"ledgertx.io/ledgertx/keys"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txerr"
)

// Signer signs and verifies transactions.
type Signer struct {
	log   *zap.Logger
	limit int
	sign  func(ed25519.PrivateKey, []byte) []byte
}

// Option configures a Signer.
type Option func(*Signer)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Signer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithParallelism bounds how many inputs are signed at once. Values below 1
// use GOMAXPROCS; 1 signs sequentially.
func WithParallelism(n int) Option {
	return func(s *Signer) { s.limit = n }
}

// New returns a Signer with a no-op logger and GOMAXPROCS parallelism unless
// opts say otherwise.
func New(opts ...Option) *Signer {
	s := &Signer{log: zap.NewNop(), sign: ed25519.Sign}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit < 1 {
		s.limit = runtime.GOMAXPROCS(0)
	}
	return s
}

type signingKey struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Sign returns a new transaction with every fulfillment set and the id
// computed. privateKeys pair positionally with unsigned.Inputs. unsigned is
// not modified, and on error no transaction is returned.
func (s *Signer) Sign(unsigned tx.Transaction, privateKeys []string) (tx.Transaction, error) {
	if len(privateKeys) != len(unsigned.Inputs) {
		return tx.Transaction{}, txerr.New(txerr.KindInputKeyMismatch, "TX-SIG-101",
			fmt.Sprintf("got %d private keys for %d inputs", len(privateKeys), len(unsigned.Inputs)))
	}

	signingKeys := make([]signingKey, len(privateKeys))
	defer func() {
		for _, k := range signingKeys {
			keys.Wipe(k.priv)
		}
	}()
	for i, encoded := range privateKeys {
		priv, err := keys.DecodePrivateKey(encoded)
		if err != nil {
			return tx.Transaction{}, txerr.Wrap(txerr.KindEncoding, "TX-SIG-103",
				fmt.Sprintf("inputs[%d]: private key", i), err)
		}
		pub := priv.Public().(ed25519.PublicKey)
		signingKeys[i] = signingKey{priv: priv, pub: pub}
		if !slices.Contains(unsigned.Inputs[i].OwnersBefore, hashutil.Base58Encode(pub)) {
			return tx.Transaction{}, txerr.New(txerr.KindInputKeyMismatch, "TX-SIG-102",
				fmt.Sprintf("inputs[%d]: key %s is not an owner before", i, hashutil.Base58Encode(pub)))
		}
	}

	base, err := canonicalUnsigned(unsigned)
	if err != nil {
		return tx.Transaction{}, err
	}

	fulfillments := make([]string, len(unsigned.Inputs))
	var g errgroup.Group
	g.SetLimit(s.limit)
	for i := range unsigned.Inputs {
		i := i
		g.Go(func() error {
			uri, err := s.fulfill(base, unsigned.Inputs[i], signingKeys[i])
			if err != nil {
				return fmt.Errorf("inputs[%d]: %w", i, err)
			}
			fulfillments[i] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("signing failed", zap.String("operation", unsigned.Operation), zap.Error(err))
		return tx.Transaction{}, err
	}

	signed := unsigned.Unsigned()
	for i := range signed.Inputs {
		signed.Inputs[i].Fulfillment = &fulfillments[i]
	}
	id, err := ComputeID(signed)
	if err != nil {
		return tx.Transaction{}, err
	}
	signed.ID = &id

	s.log.Debug("signed transaction",
		zap.String("id", id),
		zap.String("operation", signed.Operation),
		zap.Int("inputs", len(signed.Inputs)))
	return signed, nil
}

func (s *Signer) fulfill(base []byte, in tx.Input, key signingKey) (string, error) {
	digest := hashutil.SHA3_256(messageFor(base, in))
	sig := s.sign(key.priv, digest[:])
	if !ed25519.Verify(key.pub, digest[:], sig) {
		return "", txerr.New(txerr.KindSignatureVerification, "TX-SIG-201",
			"produced signature does not verify")
	}
	return ccond.FulfillmentURI(key.pub, sig)
}

// Verify checks every fulfillment of signed against its signing digest and
// owners, then checks the stored id.
func (s *Signer) Verify(signed tx.Transaction) error {
	if signed.ID == nil {
		return txerr.New(txerr.KindInvalidTx, "TX-SIG-302", "transaction has no id")
	}
	base, err := canonicalUnsigned(signed)
	if err != nil {
		return err
	}
	for i, in := range signed.Inputs {
		if in.Fulfillment == nil {
			return txerr.New(txerr.KindSignatureVerification, "TX-SIG-203",
				fmt.Sprintf("inputs[%d]: missing fulfillment", i))
		}
		f, err := ccond.ParseFulfillmentURI(*in.Fulfillment)
		if err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
		owner := hashutil.Base58Encode(f.PublicKey)
		if !slices.Contains(in.OwnersBefore, owner) {
			return txerr.New(txerr.KindInputKeyMismatch, "TX-SIG-102",
				fmt.Sprintf("inputs[%d]: key %s is not an owner before", i, owner))
		}
		digest := hashutil.SHA3_256(messageFor(base, in))
		if !f.Validate(digest[:]) {
			return txerr.New(txerr.KindSignatureVerification, "TX-SIG-202",
				fmt.Sprintf("inputs[%d]: fulfillment does not verify", i))
		}
	}
	id, err := ComputeID(signed)
	if err != nil {
		return err
	}
	if id != *signed.ID {
		return txerr.New(txerr.KindSignatureVerification, "TX-SIG-301",
			fmt.Sprintf("id %s does not match content hash %s", *signed.ID, id))
	}
	s.log.Debug("verified transaction", zap.String("id", id))
	return nil
}

// ComputeID returns the SHA3-256 hex of the canonical serialization of t with
// id null.
func ComputeID(t tx.Transaction) (string, error) {
	c := t.Clone()
	c.ID = nil
	b, err := canonical.Marshal(c)
	if err != nil {
		return "", err
	}
	return hashutil.SHA3_256Hex(b), nil
}

// SigningMessage returns the bytes whose SHA3-256 digest input i signs.
func SigningMessage(t tx.Transaction, i int) ([]byte, error) {
	if i < 0 || i >= len(t.Inputs) {
		return nil, txerr.New(txerr.KindInvalidTx, "TX-SIG-401",
			fmt.Sprintf("input index %d out of range", i))
	}
	base, err := canonicalUnsigned(t)
	if err != nil {
		return nil, err
	}
	return messageFor(base, t.Inputs[i]), nil
}

// SigningDigest returns sha3_256(SigningMessage(t, i)).
func SigningDigest(t tx.Transaction, i int) ([32]byte, error) {
	msg, err := SigningMessage(t, i)
	if err != nil {
		return [32]byte{}, err
	}
	return hashutil.SHA3_256(msg), nil
}

func canonicalUnsigned(t tx.Transaction) ([]byte, error) {
	return canonical.Marshal(t.Unsigned())
}

func messageFor(base []byte, in tx.Input) []byte {
	ref, ok := in.Fulfills.Get()
	if !ok {
		return base
	}
	msg := make([]byte, 0, len(base)+len(ref.TransactionID)+20)
	msg = append(msg, base...)
	msg = append(msg, ref.TransactionID...)
	return strconv.AppendInt(msg, int64(ref.OutputIndex), 10)
}
