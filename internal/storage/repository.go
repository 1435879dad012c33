// Package storage keeps an imported copy of the export in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/source"
)

// operationLayout sorts lexically in time order.
const operationLayout = "2006-01-02 15:04:05"

const selectColumns = `operation_at, payment_date, card_number, status, amount, currency,
	payment_amount, payment_currency, cashback, category, mcc, description,
	bonuses, invest_rounding, rounded_amount`

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var (
	_ source.Reader = (*SQLiteRepository)(nil)
	_ source.Writer = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection. Used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Transactions returns every stored record in import order.
func (r *SQLiteRepository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return scanAll(rows)
}

// TransactionsBetween returns OK records in [start, end] in import order.
func (r *SQLiteRepository) TransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transactions
		WHERE status = ? AND operation_at >= ? AND operation_at <= ?
		ORDER BY id`,
		core.StatusOK, start.Format(operationLayout), end.Format(operationLayout))
	if err != nil {
		return nil, fmt.Errorf("query transactions between: %w", err)
	}
	return scanAll(rows)
}

// ReplaceAll swaps the stored history for txs in one transaction and records the import.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error) {
	return r.ReplaceAllFrom(ctx, "", txs)
}

// ReplaceAllFrom is ReplaceAll that also names the import source in the audit table.
func (r *SQLiteRepository) ReplaceAllFrom(ctx context.Context, origin string, txs []core.Transaction) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.OperationDate.Format(operationLayout), t.PaymentDate, t.CardNumber, t.Status,
			t.Amount.String(), t.Currency, t.PaymentAmount.String(), t.PaymentCurrency,
			t.Cashback, t.Category, t.MCC, t.Description,
			t.Bonuses.String(), t.InvestRounding.String(), t.RoundedAmount.String(),
		); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, row_count, imported_at) VALUES (?, ?, ?)`,
		origin, len(txs), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Transactions imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(txs),
		"source", origin)
	return len(txs), nil
}

// LastImport returns when the history was last replaced; zero time if never.
func (r *SQLiteRepository) LastImport(ctx context.Context) (time.Time, int, error) {
	var at string
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT imported_at, row_count FROM imports ORDER BY id DESC LIMIT 1`).Scan(&at, &n)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, nil
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("query last import: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse import time %q: %w", at, err)
	}
	return ts, n, nil
}

func scanAll(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t                                                   core.Transaction
			opAt                                                string
			amount, payAmount, bonuses, investRounding, rounded string
		)
		if err := rows.Scan(&opAt, &t.PaymentDate, &t.CardNumber, &t.Status, &amount, &t.Currency,
			&payAmount, &t.PaymentCurrency, &t.Cashback, &t.Category, &t.MCC, &t.Description,
			&bonuses, &investRounding, &rounded); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		op, err := time.ParseInLocation(operationLayout, opAt, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse operation_at %q: %w", opAt, err)
		}
		t.OperationDate = op
		for _, f := range []struct {
			raw string
			dst *decimal.Decimal
		}{
			{amount, &t.Amount},
			{payAmount, &t.PaymentAmount},
			{bonuses, &t.Bonuses},
			{investRounding, &t.InvestRounding},
			{rounded, &t.RoundedAmount},
		} {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("parse decimal %q: %w", f.raw, err)
			}
			*f.dst = d
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
