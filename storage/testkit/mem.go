package testkit

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/storage"
)

// MemCAS is an in-memory storage.CAS. Err, when set, is returned by every
// call; tests use it to simulate a failing backend.
type MemCAS struct {
	mu      sync.RWMutex
	objects map[string][]byte
	Err     error
	Puts    int
}

var _ storage.CAS = (*MemCAS)(nil)

func NewMemCAS() *MemCAS { return &MemCAS{objects: map[string][]byte{}} }

func (m *MemCAS) Put(_ context.Context, data []byte) (cid.Cid, error) {
	if m.Err != nil {
		return cid.Undef, m.Err
	}
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if existing, ok := m.objects[id.KeyString()]; ok {
		if string(existing) != string(data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	m.objects[id.KeyString()] = append([]byte(nil), data...)
	return id, nil
}

func (m *MemCAS) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[id.KeyString()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemCAS) Has(_ context.Context, id cid.Cid) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	if !id.Defined() {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id.KeyString()]
	return ok, nil
}

// Len returns the number of stored objects.
func (m *MemCAS) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
