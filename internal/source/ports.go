// Package source defines where transaction records come from.
package source

import (
	"context"
	"errors"
	"time"

	"kopilka/internal/core"
)

// ErrNotFound is returned when the configured export does not exist.
var ErrNotFound = errors.New("transaction source not found")

// Ports for record backends.
type (
	// Reader loads a fresh snapshot of the transaction history on every call.
	Reader interface {
		// Transactions returns every record in source order.
		Transactions(ctx context.Context) ([]core.Transaction, error)
		// TransactionsBetween returns OK records with start <= operation date <= end.
		TransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error)
	}

	// Writer replaces the stored history. Only the sqlite backend implements it.
	Writer interface {
		ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error)
	}
)

// Between filters txs to OK records inside [start, end], keeping order.
func Between(txs []core.Transaction, start, end time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsOK() || tx.OperationDate.Before(start) || tx.OperationDate.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
