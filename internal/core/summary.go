package core

import "github.com/shopspring/decimal"

// CardSpend summarizes outflows of one card.
type CardSpend struct {
	LastDigits string          `json:"last_digits"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Cashback   decimal.Decimal `json:"cashback"`
}

// TopTransaction is the main-page projection of a large transaction.
type TopTransaction struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type CurrencyRate struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

type StockPrice struct {
	Stock string          `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// MainPage is the dashboard response. Slices are never nil so they encode as [].
type MainPage struct {
	Greeting        string           `json:"greeting"`
	Cards           []CardSpend      `json:"cards"`
	TopTransactions []TopTransaction `json:"top_transactions"`
	CurrencyRates   []CurrencyRate   `json:"currency_rates"`
	StockPrices     []StockPrice     `json:"stock_prices"`
}

// Savings is the round-up calculator result.
type Savings struct {
	AmountSaved decimal.Decimal `json:"amount_saved"`
}
