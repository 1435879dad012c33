// Package google reads the bank export from a Google Sheets range.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/source"
)

// DefaultRange covers the fifteen export columns of the first sheet.
const DefaultRange = "A:O"

// Config selects the spreadsheet and the service account used to read it.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	logger        *log.Logger
}

var _ source.Reader = (*Client)(nil)

// New creates a read-only Sheets client. Extra client options replace the
// service account credentials; tests use them to point at a fake endpoint.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = DefaultRange
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentSheets)

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets source ready", "spreadsheet_id", id, "range", rng)
	return &Client{svc: svc, spreadsheetID: id, rng: rng, logger: logger}, nil
}

// credentials resolves service account JSON from the config, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rng, err)
	}
	values := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		values = append(values, source.ToStrings(row))
	}
	txs, err := source.ParseTable(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.rng, err)
	}
	c.logger.DebugContext(ctx, "Loaded transactions",
		log.FieldCount, len(txs),
		log.FieldDuration, time.Since(start).Milliseconds())
	return txs, nil
}

func (c *Client) TransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	txs, err := c.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return source.Between(txs, start, end), nil
}
