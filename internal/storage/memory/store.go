// Package memory keeps the ledger in process memory, optionally seeded from
// a JSON ledger file.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync/atomic"

	"tracker/internal/core"
	"tracker/internal/storage"
)

// Store swaps immutable snapshots. Like the file store it does not order
// concurrent read-modify-write cycles, so unserialized writers can lose
// updates, but each snapshot it hands out is consistent.
type Store struct {
	txs atomic.Pointer[[]core.Transaction]
	seq storage.Sequence
}

func New(seed ...core.Transaction) *Store {
	s := &Store{}
	s.store(slices.Clone(seed))
	s.seq.Observe(storage.MaxID(seed))
	return s
}

// NewFromFile seeds the store from a JSON ledger file and its last-ID mark.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	txs, err := storage.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	last, err := storage.ReadLastID(path)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	s := New(txs...)
	s.seq.Observe(last)
	return s, nil
}

func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.load()), nil
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	txs := s.load()
	tx.ID = s.seq.Next(txs)
	next := make([]core.Transaction, 0, len(txs)+1)
	s.store(append(append(next, txs...), tx))
	return tx, nil
}

func (s *Store) RemoveAt(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txs := s.load()
	if index < 0 || index >= len(txs) {
		return core.IndexNotFound(index)
	}
	s.store(storage.RemoveIndex(txs, index))
	return nil
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txs := s.load()
	i := storage.IndexOfID(txs, id)
	if i < 0 {
		return core.IDNotFound(id)
	}
	s.store(storage.RemoveIndex(txs, i))
	return nil
}

func (s *Store) Replace(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store(slices.Clone(txs))
	s.seq.Observe(storage.MaxID(txs))
	return nil
}

func (s *Store) load() []core.Transaction {
	return *s.txs.Load()
}

func (s *Store) store(txs []core.Transaction) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	s.txs.Store(&txs)
}
