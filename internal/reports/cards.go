package reports

import (
	"github.com/shopspring/decimal"

	"kopilka/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CardSpends totals outflows per card, in order of first appearance.
// Cashback is one unit per hundred spent.
func CardSpends(txs []core.Transaction) []core.CardSpend {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, tx := range txs {
		if !tx.HasCard() {
			continue
		}
		sum, seen := totals[tx.CardNumber]
		if !seen {
			order = append(order, tx.CardNumber)
		}
		if tx.Amount.IsNegative() {
			sum = sum.Add(tx.Amount)
		}
		totals[tx.CardNumber] = sum
	}

	out := make([]core.CardSpend, 0, len(order))
	for _, card := range order {
		total := core.Round2(totals[card])
		out = append(out, core.CardSpend{
			LastDigits: core.Transaction{CardNumber: card}.LastDigits(),
			TotalSpent: total,
			Cashback:   core.Round2(total.Abs().Div(hundred)),
		})
	}
	return out
}
