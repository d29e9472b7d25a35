// Package txstore keeps signed transactions in a content-addressed store.
//
// The stored body of a transaction is its canonical serialization with id
// null, so the sha3-256 digest inside the body's CID is the transaction id.
// Both paths verify: Put refuses a transaction whose fulfillments or id do
// not check out, and Get refuses bytes that do not hash to the requested id
// or whose fulfillments no longer verify.
package txstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/compliance"
	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/tx"
)

var (
	ErrMissingCAS = errors.New("txstore: missing CAS")
	// ErrBodyHasID is returned when stored bytes carry a non-null id.
	ErrBodyHasID = errors.New("txstore: stored body must have a null id")
)

type Options struct {
	Mode   compliance.ComplianceMode
	Signer *signer.Signer
	Logger *zap.Logger
}

type Store struct {
	cas  storage.CAS
	ver  *signer.Signer
	mode compliance.ComplianceMode
	log  *zap.Logger
}

func New(cas storage.CAS, opts Options) (*Store, error) {
	if cas == nil {
		return nil, ErrMissingCAS
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ver := opts.Signer
	if ver == nil {
		ver = signer.New(signer.WithLogger(log))
	}
	return &Store{cas: cas, ver: ver, mode: opts.Mode, log: log}, nil
}

// Body returns the bytes stored for signed.
func Body(signed tx.Transaction) ([]byte, error) {
	c := signed.Clone()
	c.ID = nil
	return canonical.Marshal(c)
}

// Put verifies signed and stores its body. The returned CID carries the
// transaction id as its digest.
func (s *Store) Put(ctx context.Context, signed tx.Transaction) (cid.Cid, error) {
	if err := s.check(signed); err != nil {
		return cid.Undef, err
	}
	want, err := cidutil.FromTxID(*signed.ID)
	if err != nil {
		return cid.Undef, err
	}
	body, err := Body(signed)
	if err != nil {
		return cid.Undef, err
	}
	got, err := s.cas.Put(ctx, body)
	if err != nil {
		return cid.Undef, fmt.Errorf("txstore: put %s: %w", *signed.ID, err)
	}
	if !got.Equals(want) {
		return cid.Undef, fmt.Errorf("txstore: put %s: backend returned %s: %w", *signed.ID, got, storage.ErrCIDMismatch)
	}
	s.log.Debug("stored transaction", zap.String("id", *signed.ID), zap.String("cid", got.String()))
	return got, nil
}

// Get loads and verifies the transaction with the given id.
func (s *Store) Get(ctx context.Context, txID string) (tx.Transaction, error) {
	id, err := cidutil.FromTxID(txID)
	if err != nil {
		return tx.Transaction{}, err
	}
	return s.load(ctx, id, txID)
}

// GetCID is Get addressed by CID.
func (s *Store) GetCID(ctx context.Context, id cid.Cid) (tx.Transaction, error) {
	txID, err := cidutil.TxID(id)
	if err != nil {
		return tx.Transaction{}, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
	}
	return s.load(ctx, id, txID)
}

func (s *Store) Has(ctx context.Context, txID string) (bool, error) {
	id, err := cidutil.FromTxID(txID)
	if err != nil {
		return false, err
	}
	return s.cas.Has(ctx, id)
}

func (s *Store) load(ctx context.Context, id cid.Cid, txID string) (tx.Transaction, error) {
	b, err := s.cas.Get(ctx, id)
	if err != nil {
		return tx.Transaction{}, fmt.Errorf("txstore: get %s: %w", txID, err)
	}
	if !cidutil.Verify(id, b) {
		return tx.Transaction{}, fmt.Errorf("txstore: get %s: %w", txID, storage.ErrCIDMismatch)
	}
	t, err := tx.Parse(b)
	if err != nil {
		return tx.Transaction{}, fmt.Errorf("txstore: get %s: %w", txID, err)
	}
	if t.ID != nil {
		return tx.Transaction{}, ErrBodyHasID
	}
	t.ID = &txID
	if err := s.check(t); err != nil {
		return tx.Transaction{}, fmt.Errorf("txstore: get %s: %w", txID, err)
	}
	return t, nil
}

func (s *Store) check(t tx.Transaction) error {
	if s.mode == compliance.Strict {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return s.ver.Verify(t)
}
