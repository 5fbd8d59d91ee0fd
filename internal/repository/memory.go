package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Update transactions are serialised by
// a mutex and buffer their writes until fn returns nil.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Update runs fn in a read/write transaction.
func (s *MemoryStore) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &memTxn{base: s.data, writes: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	for key, value := range txn.writes {
		if value == nil {
			delete(s.data, key)
			continue
		}
		s.data[key] = value
	}
	return nil
}

// View runs fn in a read-only transaction.
func (s *MemoryStore) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTxn{base: s.data, readOnly: true})
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// memTxn overlays pending writes on the committed map. A nil value in writes
// marks a deletion.
type memTxn struct {
	base     map[string][]byte
	writes   map[string][]byte
	readOnly bool
}

func (t *memTxn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok := t.writes[key]; ok {
		if value == nil {
			return nil, false, nil
		}
		return slices.Clone(value), true, nil
	}
	value, ok := t.base[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (t *memTxn) Put(ctx context.Context, key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[key] = slices.Clone(value)
	return nil
}

func (t *memTxn) Delete(ctx context.Context, key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.writes[key] = nil
	return nil
}

func (t *memTxn) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	var keys []string
	for key := range t.base {
		if _, shadowed := t.writes[key]; !shadowed && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key, value := range t.writes {
		if value != nil && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		value, _, _ := t.Get(ctx, key)
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}
