package worker

import (
	"context"
	"fmt"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/source"
)

// Store replaces the stored history and records where it came from.
type Store interface {
	ReplaceAllFrom(ctx context.Context, origin string, txs []core.Transaction) (int, error)
}

// Importer copies the bank export into the store.
type Importer struct {
	src    source.Reader
	dst    Store
	origin string
	logger *log.Logger
}

// NewImporter creates an importer reading src, labelled origin in the import log.
func NewImporter(src source.Reader, dst Store, origin string, logger *log.Logger) *Importer {
	return &Importer{
		src:    src,
		dst:    dst,
		origin: origin,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// Import replaces the stored history with a fresh read of the export.
func (i *Importer) Import(ctx context.Context) (int, error) {
	start := time.Now()
	txs, err := i.src.Transactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", i.origin, err)
	}
	n, err := i.dst.ReplaceAllFrom(ctx, i.origin, txs)
	if err != nil {
		return 0, fmt.Errorf("store %s: %w", i.origin, err)
	}
	i.logger.InfoContext(ctx, "Imported transactions",
		log.FieldOperation, log.OpImport,
		log.FieldPathFile, i.origin,
		log.FieldCount, n,
		log.FieldDuration, time.Since(start).Milliseconds())
	return n, nil
}

// RunPeriodic imports once, then again every interval until ctx ends.
// Failures are logged and retried on the next tick.
func (i *Importer) RunPeriodic(ctx context.Context, interval time.Duration) {
	if _, err := i.Import(ctx); err != nil {
		i.logger.ErrorContext(ctx, "Startup import failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := i.Import(ctx); err != nil {
				i.logger.ErrorContext(ctx, "Periodic import failed", log.FieldError, err)
			}
		}
	}
}
