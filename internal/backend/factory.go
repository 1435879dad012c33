package backend

import (
	"context"
	"errors"
	"fmt"

	"kopilka/internal/log"
	"kopilka/internal/source"
	"kopilka/internal/source/file"
	gsheet "kopilka/internal/source/google"
	"kopilka/internal/source/memory"
	"kopilka/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// exportReader opens the configured export, honouring the worksheet choice.
func (f *DefaultFactory) exportReader(config Config) *file.Reader {
	var opts []file.Option
	if config.OperationsSheet != "" {
		opts = append(opts, file.WithSheet(config.OperationsSheet))
	}
	return file.New(config.OperationsPath, f.logger, opts...)
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	r := f.exportReader(config)
	f.logger.Info("Initialized file backend", log.FieldPathFile, config.OperationsPath)
	return &BackendResult{Reader: r}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Reader:  repo,
		Writer:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleOperationsRange,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend")
	return &BackendResult{Reader: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New(nil)
	if config.OperationsPath != "" {
		txs, err := f.exportReader(config).Transactions(ctx)
		switch {
		case errors.Is(err, source.ErrNotFound):
			f.logger.Warn("Seed export not found, memory backend starts empty", log.FieldPathFile, config.OperationsPath)
		case err != nil:
			return nil, fmt.Errorf("seed memory backend: %w", err)
		default:
			if _, err := store.ReplaceAll(ctx, txs); err != nil {
				return nil, fmt.Errorf("seed memory backend: %w", err)
			}
		}
	}
	f.logger.Info("Initialized memory backend", log.FieldPathFile, config.OperationsPath)
	return &BackendResult{Reader: store, Writer: store}, nil
}
