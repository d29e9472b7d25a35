// Package boltcas stores transaction bodies in a single bbolt file.
package boltcas

import (
	"bytes"
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/storage"
)

var bucketObjects = []byte("objects")

// CAS is a storage.CAS backed by a bbolt database. Objects live in one bucket
// keyed by CID bytes.
type CAS struct {
	db *bolt.DB
}

var (
	_ storage.CAS        = (*CAS)(nil)
	_ storage.Enumerator = (*CAS)(nil)
)

// Open opens (or creates) the database file at path. timeout bounds how long
// Open waits for the file lock; zero waits forever.
func Open(path string, timeout time.Duration) (*CAS, error) {
	if path == "" {
		return nil, errors.New("boltcas: path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "boltcas: open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "boltcas: create bucket")
	}
	return &CAS{db: db}, nil
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		key := id.Bytes()
		if existing := b.Get(key); existing != nil {
			if !bytes.Equal(existing, data) {
				return storage.ErrImmutable
			}
			return nil
		}
		return b.Put(key, data)
	})
	if err != nil {
		if errors.Is(err, storage.ErrImmutable) {
			return cid.Undef, err
		}
		return cid.Undef, errors.Wrapf(err, "boltcas: put %s", id)
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketObjects).Get(id.Bytes()); v != nil {
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "boltcas: get %s", id)
	}
	if data == nil {
		return nil, storage.ErrNotFound
	}
	if !cidutil.Verify(id, data) {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !id.Defined() {
		return false, nil
	}
	var ok bool
	err := c.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketObjects).Get(id.Bytes()) != nil
		return nil
	})
	return ok, err
}

// ForEach calls fn for every stored object in key order. fn must not retain
// data after it returns.
func (c *CAS) ForEach(fn func(id cid.Cid, data []byte) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			id, err := cid.Cast(k)
			if err != nil {
				return errors.Wrap(err, "boltcas: bad key")
			}
			return fn(id, v)
		})
	})
}

func (c *CAS) Close() error { return c.db.Close() }
