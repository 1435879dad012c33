package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
)

// Residual is what rounding abs(amount) up to the next multiple of limit
// would move to savings. It is 0 when abs(amount) is already a multiple.
// limit must be positive.
func Residual(amount decimal.Decimal, limit int) decimal.Decimal {
	l := decimal.NewFromInt(int64(limit))
	rem := amount.Abs().Mod(l)
	if rem.IsZero() {
		return decimal.Zero
	}
	return l.Sub(rem)
}

// RoundUpSavings sums Residual over the spends dated in month's calendar month.
func RoundUpSavings(month time.Time, spends []core.Spend, limit int) (core.Savings, error) {
	if err := core.ValidateLimit(limit); err != nil {
		return core.Savings{}, err
	}
	total := decimal.Zero
	for _, s := range spends {
		if !core.SameMonth(s.Date, month) {
			continue
		}
		total = total.Add(Residual(s.Amount, limit))
	}
	return core.Savings{AmountSaved: core.Round2(total)}, nil
}
