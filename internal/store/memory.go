package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps documents in process memory. Transactions are fully
// serialized, which makes it suitable for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	docs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) read(collection, id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[collection][id]
	return raw, ok
}

func (m *MemoryStore) write(collection, id string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string][]byte)
	}
	m.docs[collection][id] = raw
}

func (m *MemoryStore) Get(_ context.Context, collection, id string, dst any) error {
	raw, ok := m.read(collection, id)
	if !ok {
		return ErrNotFound
	}
	return decode(raw, dst)
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, doc any) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.write(collection, id, raw)
	return nil
}

func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs[collection]))
	for id := range m.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, jsonDocument(id, m.docs[collection][id]))
	}
	return out, nil
}

type memoryWrite struct {
	collection, id string
	raw            []byte
}

type memoryTx struct {
	store  *MemoryStore
	writes []memoryWrite
}

func (t *memoryTx) Get(collection, id string, dst any) error {
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		if w.collection == collection && w.id == id {
			return decode(w.raw, dst)
		}
	}
	raw, ok := t.store.read(collection, id)
	if !ok {
		return ErrNotFound
	}
	return decode(raw, dst)
}

func (t *memoryTx) Set(collection, id string, doc any) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, memoryWrite{collection: collection, id: id, raw: raw})
	return nil
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range tx.writes {
		if m.docs[w.collection] == nil {
			m.docs[w.collection] = make(map[string][]byte)
		}
		m.docs[w.collection][w.id] = w.raw
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}
