// Package rediscas stores transaction bodies in Redis.
package rediscas

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/storage"
)

const keyPrefixObject = "ledgertx:obj:"

var errClosed = errors.New("rediscas: store is closed")

// Config holds the configuration for connecting to Redis.
type Config struct {
	// Address is the Redis server address (host:port).
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to every key, e.g. "tenant-a:".
	KeyPrefix string
}

// CAS is a storage.CAS backed by Redis string keys.
type CAS struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ storage.CAS = (*CAS)(nil)

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*CAS, error) {
	if cfg.Address == "" {
		return nil, errors.New("rediscas: address cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "rediscas: connect to %s", cfg.Address)
	}

	logger.Info("redis CAS connected",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix))
	return &CAS{client: client, logger: logger, keyPrefix: cfg.KeyPrefix}, nil
}

func (c *CAS) key(id cid.Cid) string {
	return c.keyPrefix + keyPrefixObject + id.String()
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return cid.Undef, errClosed
	}

	created, err := c.client.SetNX(ctx, c.key(id), data, 0).Result()
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "rediscas: put %s", id)
	}
	if created {
		return id, nil
	}
	existing, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "rediscas: read back %s", id)
	}
	if !bytes.Equal(existing, data) {
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClosed
	}
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "rediscas: get %s", id)
	}
	if !cidutil.Verify(id, data) {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, errClosed
	}
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "rediscas: has %s", id)
	}
	return n > 0, nil
}

func (c *CAS) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("rediscas: close: %w", err)
	}
	return nil
}
