package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"kopilka/internal/source"
)

var exportRows = [][]string{
	source.Columns,
	{"31.12.2021 16:44:00", "31.12.2021", "*7197", "OK", "-160.89", "RUB", "-160.89", "RUB", "", "Супермаркеты", "5411", "Колхоз", "3", "0", "160.89"},
	{"31.12.2021 16:42:04", "31.12.2021", "*7197", "OK", "-64.00", "RUB", "-64.00", "RUB", "", "Супермаркеты", "5411", "Колхоз", "1", "0", "64.00"},
	{"30.12.2021 17:50:30", "30.12.2021", "", "OK", "-800.00", "RUB", "-800.00", "RUB", "", "Переводы", "", "Константин Л.", "0", "0", "800.00"},
	{"15.11.2021 10:00:00", "15.11.2021", "*5091", "FAILED", "-10.00", "RUB", "-10.00", "RUB", "", "Фастфуд", "5814", "Mouse Tail", "0", "0", "10.00"},
}

func writeXLSX(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range exportRows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(dir, "operations.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func writeCSV(t *testing.T, dir string, sep string) string {
	t.Helper()
	var b strings.Builder
	for _, row := range exportRows {
		b.WriteString(strings.Join(row, sep))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "operations.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestReaderXLSX(t *testing.T) {
	path := writeXLSX(t, t.TempDir())
	r := New(path, nil)

	txs, err := r.Transactions(context.Background())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(txs))
	}
	if txs[0].CardNumber != "*7197" || txs[0].Amount.String() != "-160.89" {
		t.Fatalf("unexpected first row %+v", txs[0])
	}
	if txs[2].HasCard() {
		t.Fatalf("row without card should have empty card number")
	}
}

func TestReaderCSVSeparators(t *testing.T) {
	for _, sep := range []string{";", ","} {
		path := writeCSV(t, t.TempDir(), sep)
		txs, err := New(path, nil).Transactions(context.Background())
		if err != nil {
			t.Fatalf("sep %q: %v", sep, err)
		}
		if len(txs) != 4 || txs[2].Description != "Константин Л." {
			t.Fatalf("sep %q: unexpected %+v", sep, txs)
		}
	}
}

func TestReaderBetween(t *testing.T) {
	path := writeCSV(t, t.TempDir(), ";")
	start := time.Date(2021, 12, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2021, 12, 31, 16, 43, 0, 0, time.Local)
	txs, err := New(path, nil).TransactionsBetween(context.Background(), start, end)
	if err != nil {
		t.Fatalf("TransactionsBetween: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 rows inside window, got %d", len(txs))
	}
}

func TestReaderMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.xlsx"), nil).Transactions(context.Background())
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReaderUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path, nil).Transactions(context.Background()); err == nil {
		t.Fatalf("expected error for .json")
	}
}
