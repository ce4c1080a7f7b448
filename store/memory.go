package store

import "sync"

// Memory is an in-process Store. Updates buffer their writes and apply
// them under the lock only when the closure succeeds, so a failed update
// leaves nothing behind.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *Memory) Update(fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{base: m.data, writes: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.writes {
		m.data[k] = v
	}
	return nil
}

func (m *Memory) Close() error { return nil }

type memoryTx struct {
	base   map[string][]byte
	writes map[string][]byte
}

func (t *memoryTx) Get(key []byte) ([]byte, error) {
	if v, ok := t.writes[string(key)]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	v, ok := t.base[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memoryTx) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	t.writes[string(key)] = v
	return nil
}

func (t *memoryTx) Has(key []byte) (bool, error) {
	if _, ok := t.writes[string(key)]; ok {
		return true, nil
	}
	_, ok := t.base[string(key)]
	return ok, nil
}
