// Package rates fetches currency rates and stock prices for the main page.
//
// Fetchers never fail the caller: transport errors and bad responses are
// logged and the affected entries are left out.
package rates

import (
	"context"
	"net/http"
	"time"

	"kopilka/internal/core"
)

// Ports for rate providers.
type (
	CurrencyFetcher interface {
		// CurrencyRates returns rates for codes in input order, skipping unknown codes.
		CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate
	}

	StockFetcher interface {
		// StockPrices returns prices for symbols in input order, skipping failed lookups.
		StockPrices(ctx context.Context, symbols []string) []core.StockPrice
	}
)

const (
	DefaultCurrencyURL = "https://www.cbr-xml-daily.ru/daily_json.js"
	DefaultStockURL    = "https://www.alphavantage.co/query"
	DefaultTimeout     = 10 * time.Second
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
