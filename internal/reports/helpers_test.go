package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.Local)
}

func ok(date time.Time, amount string) core.Transaction {
	return core.Transaction{OperationDate: date, Status: core.StatusOK, Amount: dec(amount)}
}

func assertDec(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

func decFromInt(i int) decimal.Decimal {
	return decimal.NewFromInt(int64(i))
}
