package core

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusOK          = "OK"
	CategoryTransfers = "Переводы"
)

type (
	// Transaction is one row of the bank-card export.
	Transaction struct {
		OperationDate   time.Time
		PaymentDate     string
		CardNumber      string // "" when the row has no card
		Status          string
		Amount          decimal.Decimal
		Currency        string
		PaymentAmount   decimal.Decimal
		PaymentCurrency string
		Cashback        string
		Category        string
		MCC             string
		Description     string
		Bonuses         decimal.Decimal
		InvestRounding  decimal.Decimal
		RoundedAmount   decimal.Decimal
	}

	// Spend is the projection consumed by the round-up calculator.
	Spend struct {
		Date   time.Time
		Amount decimal.Decimal
	}

	// Settings lists the currencies and tickers shown on the main page.
	Settings struct {
		Currencies []string `json:"user_currencies" mapstructure:"user_currencies"`
		Stocks     []string `json:"user_stocks" mapstructure:"user_stocks"`
	}
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidLimit     = errors.New("invalid limit")
	ErrInvalidAmount    = errors.New("invalid amount")
)

var numericMoney sync.Once

// NumericMoney switches decimal JSON encoding to bare numbers. Every
// encoder of money calls it before marshalling; the setting is process-wide.
func NumericMoney() {
	numericMoney.Do(func() { decimal.MarshalJSONWithoutQuotes = true })
}

// IsOK reports whether the transaction counts toward spend aggregates.
func (t Transaction) IsOK() bool {
	return t.Status == StatusOK
}

// HasCard reports whether the row carries a card number.
func (t Transaction) HasCard() bool {
	return t.CardNumber != ""
}

// LastDigits returns the last four runes of the card number.
func (t Transaction) LastDigits() string {
	r := []rune(t.CardNumber)
	if len(r) <= 4 {
		return string(r)
	}
	return string(r[len(r)-4:])
}

// Spend projects the transaction onto its calendar date and signed amount.
func (t Transaction) Spend() Spend {
	return Spend{Date: StartOfDay(t.OperationDate), Amount: t.Amount}
}

// Spends projects every transaction, keeping order.
func Spends(txs []Transaction) []Spend {
	out := make([]Spend, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Spend())
	}
	return out
}

type transactionJSON struct {
	OperationDate   string          `json:"operation_date"`
	PaymentDate     string          `json:"payment_date"`
	CardNumber      *string         `json:"card_number"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	PaymentCurrency string          `json:"payment_currency"`
	Cashback        string          `json:"cashback"`
	Category        string          `json:"category"`
	MCC             string          `json:"mcc"`
	Description     string          `json:"description"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	InvestRounding  decimal.Decimal `json:"invest_rounding"`
	RoundedAmount   decimal.Decimal `json:"rounded_amount"`
}

// MarshalJSON writes the record with the export's date layout and a null card when absent.
func (t Transaction) MarshalJSON() ([]byte, error) {
	NumericMoney()
	v := transactionJSON{
		PaymentDate:     t.PaymentDate,
		Status:          t.Status,
		Amount:          t.Amount,
		Currency:        t.Currency,
		PaymentAmount:   t.PaymentAmount,
		PaymentCurrency: t.PaymentCurrency,
		Cashback:        t.Cashback,
		Category:        t.Category,
		MCC:             t.MCC,
		Description:     t.Description,
		Bonuses:         t.Bonuses,
		InvestRounding:  t.InvestRounding,
		RoundedAmount:   t.RoundedAmount,
	}
	if !t.OperationDate.IsZero() {
		v.OperationDate = t.OperationDate.Format(OperationDateLayout)
	}
	if t.HasCard() {
		card := t.CardNumber
		v.CardNumber = &card
	}
	return json.Marshal(v)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var v transactionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var op time.Time
	if v.OperationDate != "" {
		parsed, err := ParseOperationDate(v.OperationDate)
		if err != nil {
			return err
		}
		op = parsed
	}
	card := ""
	if v.CardNumber != nil {
		card = *v.CardNumber
	}
	*t = Transaction{
		OperationDate:   op,
		PaymentDate:     v.PaymentDate,
		CardNumber:      card,
		Status:          v.Status,
		Amount:          v.Amount,
		Currency:        v.Currency,
		PaymentAmount:   v.PaymentAmount,
		PaymentCurrency: v.PaymentCurrency,
		Cashback:        v.Cashback,
		Category:        v.Category,
		MCC:             v.MCC,
		Description:     v.Description,
		Bonuses:         v.Bonuses,
		InvestRounding:  v.InvestRounding,
		RoundedAmount:   v.RoundedAmount,
	}
	return nil
}
