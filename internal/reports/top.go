package reports

import (
	"sort"

	"kopilka/internal/core"
)

// MainPageTopN is how many transactions the dashboard lists.
const MainPageTopN = 5

// TopTransactions returns the n largest transactions by rounded amount.
//
// Amounts are compared by their integer part only, so 120.9 and 120.1 tie and
// keep their input order.
func TopTransactions(txs []core.Transaction, n int) []core.TopTransaction {
	if n <= 0 {
		return []core.TopTransaction{}
	}
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RoundedAmount.IntPart() > sorted[j].RoundedAmount.IntPart()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]core.TopTransaction, 0, len(sorted))
	for _, tx := range sorted {
		out = append(out, core.TopTransaction{
			Date:        tx.PaymentDate,
			Amount:      tx.RoundedAmount,
			Category:    tx.Category,
			Description: tx.Description,
		})
	}
	return out
}
