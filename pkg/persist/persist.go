// Package persist stores the store's state blob under a fixed key.
package persist

import (
	"context"
	"sync"
)

// Persister reads and writes one opaque blob. Load returns (nil, nil) when
// nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// Memory keeps the blob in process. Used in tests and when PERSIST_BACKEND=memory.
type Memory struct {
	mu    sync.Mutex
	blob  []byte
	saves int
}

func NewMemory(initial []byte) *Memory {
	return &Memory{blob: clone(initial)}
}

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.blob), nil
}

func (m *Memory) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = clone(blob)
	m.saves++
	return nil
}

// Blob returns a copy of the last saved blob.
func (m *Memory) Blob() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.blob)
}

// SaveCount returns the number of Save calls so far.
func (m *Memory) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
