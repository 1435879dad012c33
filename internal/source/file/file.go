// Package file reads the bank export straight from disk.
package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/source"
)

// Reader loads an .xlsx or .csv export on every call.
type Reader struct {
	path   string
	sheet  string
	logger *log.Logger
}

var _ source.Reader = (*Reader)(nil)

// Option configures a Reader.
type Option func(*Reader)

// WithSheet selects the worksheet of an .xlsx export. Defaults to the first one.
func WithSheet(name string) Option {
	return func(r *Reader) { r.sheet = name }
}

// New creates a Reader for path. The extension picks the format.
func New(path string, logger *log.Logger, opts ...Option) *Reader {
	r := &Reader{
		path:   path,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentSource),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) Transactions(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	values, err := r.readValues()
	if err != nil {
		return nil, err
	}
	txs, err := source.ParseTable(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	r.logger.DebugContext(ctx, "Loaded transactions",
		log.FieldOperation, log.OpLoad,
		log.FieldPathFile, r.path,
		log.FieldCount, len(txs),
		log.FieldDuration, time.Since(start).Milliseconds())
	return txs, nil
}

func (r *Reader) TransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	txs, err := r.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return source.Between(txs, start, end), nil
}

func (r *Reader) readValues() ([][]string, error) {
	if _, err := os.Stat(r.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", source.ErrNotFound, r.path)
		}
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".xlsx", ".xlsm":
		return r.readXLSX()
	case ".csv", ".txt":
		return readCSVFile(r.path)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(r.path))
	}
}

func (r *Reader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("%s has no worksheets", r.path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return ReadCSV(fh)
}

// ReadCSV reads a CSV export. Semicolon and comma separators are both
// accepted; the header line decides which one is used.
func ReadCSV(in io.Reader) ([][]string, error) {
	br := bufio.NewReader(in)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	header := string(first)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if strings.Count(header, ";") > strings.Count(header, ",") {
		cr.Comma = ';'
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}
