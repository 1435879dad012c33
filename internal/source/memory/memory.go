// Package memory keeps transactions in process. It backs tests and the
// "memory" data backend.
package memory

import (
	"context"
	"sync"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/source"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

var (
	_ source.Reader = (*Store)(nil)
	_ source.Writer = (*Store)(nil)
)

// New copies txs into a new store.
func New(txs []core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), txs...)}
}

// Transactions returns a copy so callers cannot alias the stored slice.
func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.Transaction, 0, len(s.items)), s.items...), nil
}

func (s *Store) TransactionsBetween(_ context.Context, start, end time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return source.Between(s.items, start, end), nil
}

// ReplaceAll swaps the stored history.
func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), txs...)
	return len(s.items), nil
}
