package source

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
)

// Column headers of the bank export.
const (
	ColOperationDate   = "Дата операции"
	ColPaymentDate     = "Дата платежа"
	ColCardNumber      = "Номер карты"
	ColStatus          = "Статус"
	ColAmount          = "Сумма операции"
	ColCurrency        = "Валюта операции"
	ColPaymentAmount   = "Сумма платежа"
	ColPaymentCurrency = "Валюта платежа"
	ColCashback        = "Кэшбэк"
	ColCategory        = "Категория"
	ColMCC             = "MCC"
	ColDescription     = "Описание"
	ColBonuses         = "Бонусы (включая кэшбэк)"
	ColInvestRounding  = "Округление на инвесткопилку"
	ColRoundedAmount   = "Сумма операции с округлением"
)

// Columns lists the export header in its canonical order.
var Columns = []string{
	ColOperationDate, ColPaymentDate, ColCardNumber, ColStatus, ColAmount,
	ColCurrency, ColPaymentAmount, ColPaymentCurrency, ColCashback, ColCategory,
	ColMCC, ColDescription, ColBonuses, ColInvestRounding, ColRoundedAmount,
}

var requiredColumns = []string{ColOperationDate, ColStatus, ColAmount}

// ParseTable maps a header row onto the following rows. Columns are found by
// name so their order in the export does not matter. Blank rows are skipped.
func ParseTable(values [][]string) ([]core.Transaction, error) {
	if len(values) == 0 {
		return []core.Transaction{}, nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	col := make(map[string]int, len(Columns))
	for _, name := range Columns {
		col[name] = IndexOf(header, name)
	}
	var missing []string
	for _, name := range requiredColumns {
		if col[name] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected export header: missing %s; got headers=%v", strings.Join(missing, ","), header)
	}

	out := make([]core.Transaction, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := values[i]
		if blank(row) {
			continue
		}
		get := func(name string) string { return SafeGet(row, col[name]) }
		tx, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRow(get func(string) string) (core.Transaction, error) {
	op, err := core.ParseOperationDate(get(ColOperationDate))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s: %w", ColOperationDate, err)
	}
	amount, err := core.ParseAmount(get(ColAmount))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s %q: %w", ColAmount, get(ColAmount), err)
	}
	tx := core.Transaction{
		OperationDate:   op,
		PaymentDate:     get(ColPaymentDate),
		CardNumber:      get(ColCardNumber),
		Status:          get(ColStatus),
		Amount:          amount,
		Currency:        get(ColCurrency),
		PaymentCurrency: get(ColPaymentCurrency),
		Cashback:        get(ColCashback),
		Category:        get(ColCategory),
		MCC:             get(ColMCC),
		Description:     get(ColDescription),
	}
	optional := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{ColPaymentAmount, &tx.PaymentAmount},
		{ColBonuses, &tx.Bonuses},
		{ColInvestRounding, &tx.InvestRounding},
		{ColRoundedAmount, &tx.RoundedAmount},
	}
	for _, o := range optional {
		v, err := core.ParseOptionalAmount(get(o.name))
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%s %q: %w", o.name, get(o.name), err)
		}
		*o.dst = v
	}
	// pandas exports an absent card as "nan".
	if strings.EqualFold(tx.CardNumber, "nan") {
		tx.CardNumber = ""
	}
	return tx, nil
}

// ToStrings converts a loosely typed row (Sheets API values) to trimmed strings.
func ToStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// IndexOf returns the position of target in arr, ignoring case, or -1.
func IndexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

// SafeGet returns the trimmed cell at idx or "" when out of range.
func SafeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return strings.TrimSpace(arr[idx])
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
