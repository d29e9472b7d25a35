// Package badgercas stores transaction bodies in an embedded Badger database.
package badgercas

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/storage"
)

const (
	keyPrefixObject      = "obj:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

var errClosed = errors.New("badgercas: store is closed")

// Options configures a Badger CAS.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
}

// CAS is a storage.CAS backed by Badger. Keys are "obj:" + CID bytes.
type CAS struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ storage.CAS = (*CAS)(nil)

// Open opens (or creates) a Badger CAS.
func Open(o Options, logger *zap.Logger) (*CAS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badgerdb.Options
	if o.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if o.Dir == "" {
			return nil, errors.New("badgercas: directory is required")
		}
		absPath, err := filepath.Abs(o.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "badgercas: resolve path")
		}
		opts = badgerdb.DefaultOptions(absPath)
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "badgercas: open %s", o.Dir)
	}
	c := &CAS{db: db, logger: logger}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if o.GCInterval > 0 && !o.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		c.gcCancel = cancel
		c.gcWg.Add(1)
		go c.runGC(ctx, o.GCInterval)
	}
	logger.Info("badger CAS opened", zap.String("dir", o.Dir), zap.Bool("in_memory", o.InMemory))
	return c, nil
}

func (c *CAS) initSchema() error {
	return c.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return errors.Wrap(err, "badgercas: read schema version")
		}
		return item.Value(func(val []byte) error {
			if string(val) != currentSchemaVersion {
				return fmt.Errorf("badgercas: unsupported schema version %s (expected %s)", val, currentSchemaVersion)
			}
			return nil
		})
	})
}

func (c *CAS) runGC(ctx context.Context, every time.Duration) {
	defer c.gcWg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := c.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				c.logger.Warn("badger GC error", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func objectKey(id cid.Cid) []byte {
	return append([]byte(keyPrefixObject), id.Bytes()...)
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return cid.Undef, errClosed
	}
	err = c.db.Update(func(txn *badgerdb.Txn) error {
		key := objectKey(id)
		item, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set(key, data)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if !bytes.Equal(val, data) {
				return storage.ErrImmutable
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, storage.ErrImmutable) {
			return cid.Undef, err
		}
		return cid.Undef, errors.Wrapf(err, "badgercas: put %s", id)
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
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClosed
	}
	var data []byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(objectKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "badgercas: get %s", id)
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
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, errClosed
	}
	err := c.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(objectKey(id))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "badgercas: has %s", id)
	}
	return true, nil
}

// Close stops background GC and closes the database. It is safe to call twice.
func (c *CAS) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.gcCancel != nil {
		c.gcCancel()
		c.gcWg.Wait()
	}
	return c.db.Close()
}
