// Package repository implements the persistent key/value store that backs
// every contract instance. A call runs inside exactly one Update or View
// transaction; either all of its writes become visible or none do.
package repository

import (
	"context"
	"errors"
	"strings"
)

// ErrConflict is returned when a transaction lost a race with a concurrent
// one and may succeed if retried from scratch.
var ErrConflict = errors.New("transaction conflict")

// ErrReadOnly is returned when a View transaction attempts a write.
var ErrReadOnly = errors.New("read-only transaction")

// Entry is one key/value pair returned by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Txn is a view of the store inside one transaction.
type Txn interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan returns every entry whose key starts with prefix, ordered by key.
	Scan(ctx context.Context, prefix string) ([]Entry, error)
}

// Store opens transactions.
type Store interface {
	Update(ctx context.Context, fn func(Txn) error) error
	View(ctx context.Context, fn func(Txn) error) error
	Close() error
}

// scoped prefixes every key with a namespace.
type scoped struct {
	txn    Txn
	prefix string
}

// Scope returns a Txn whose keys live under namespace. Keys passed to and
// returned from the scoped Txn are relative to the namespace.
func Scope(txn Txn, namespace string) Txn {
	return &scoped{txn: txn, prefix: namespace + "/"}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.txn.Get(ctx, s.prefix+key)
}

func (s *scoped) Put(ctx context.Context, key string, value []byte) error {
	return s.txn.Put(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.txn.Delete(ctx, s.prefix+key)
}

func (s *scoped) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	entries, err := s.txn.Scan(ctx, s.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Key = strings.TrimPrefix(entries[i].Key, s.prefix)
	}
	return entries, nil
}
