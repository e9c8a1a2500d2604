package ledger

import (
	"context"
	"sync"

	"github.com/uniedit/ghiblify/internal/port/outbound"
)

// MemoryBackend is an in-process DocumentPort.
// Only the map is guarded; ledger operations still race at the
// read-modify-write level like every other backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend creates a backend holding the given documents.
func NewMemoryBackend(docs map[string][]byte) *MemoryBackend {
	m := &MemoryBackend{docs: make(map[string][]byte, len(docs))}
	for name, data := range docs {
		m.docs[name] = append([]byte(nil), data...)
	}
	return m
}

// NewSeededMemoryBackend creates a backend with empty users and history documents.
func NewSeededMemoryBackend() *MemoryBackend {
	return NewMemoryBackend(map[string][]byte{
		UsersDocument:   []byte("{}"),
		HistoryDocument: []byte("{}"),
	})
}

var _ outbound.DocumentPort = (*MemoryBackend)(nil)

// Load returns a copy of the named document.
func (m *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[name]
	if !ok {
		return nil, outbound.ErrDocumentNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save replaces the named document.
func (m *MemoryBackend) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[name] = append([]byte(nil), data...)
	return nil
}
