package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
	"kopilka/internal/source"
)

type fakeReader struct {
	txs []core.Transaction
	err error

	mu          sync.Mutex
	start, end  time.Time
	betweenHits int
}

func (f *fakeReader) Transactions(context.Context) ([]core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

func (f *fakeReader) TransactionsBetween(_ context.Context, start, end time.Time) ([]core.Transaction, error) {
	f.mu.Lock()
	f.start, f.end = start, end
	f.betweenHits++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return source.Between(f.txs, start, end), nil
}

type fakeSettings struct{ s core.Settings }

func (f fakeSettings) Load(context.Context) core.Settings { return f.s }

type fakeCurrency struct {
	delay time.Duration
	rates []core.CurrencyRate
}

func (f fakeCurrency) CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate {
	time.Sleep(f.delay)
	return f.rates
}

type fakeStocks struct {
	delay  time.Duration
	prices []core.StockPrice
}

func (f fakeStocks) StockPrices(ctx context.Context, symbols []string) []core.StockPrice {
	time.Sleep(f.delay)
	return f.prices
}

var errBackend = errors.New("backend down")

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(y int, m time.Month, day, h int) time.Time {
	return time.Date(y, m, day, h, 0, 0, 0, time.Local)
}

func history() []core.Transaction {
	return []core.Transaction{
		{OperationDate: at(2021, time.December, 31, 16), PaymentDate: "31.12.2021", CardNumber: "*7197", Status: core.StatusOK,
			Amount: d("-160.89"), RoundedAmount: d("160.89"), Category: "Супермаркеты", Description: "Колхоз"},
		{OperationDate: at(2021, time.December, 31, 15), PaymentDate: "31.12.2021", CardNumber: "*7197", Status: core.StatusOK,
			Amount: d("-237.40"), RoundedAmount: d("237.40"), Category: "Супермаркеты", Description: "Магнит"},
		{OperationDate: at(2021, time.December, 30, 17), PaymentDate: "30.12.2021", Status: core.StatusOK,
			Amount: d("-800"), RoundedAmount: d("800"), Category: core.CategoryTransfers, Description: "Константин Л."},
		{OperationDate: at(2021, time.December, 15, 12), PaymentDate: "15.12.2021", CardNumber: "*5091", Status: core.StatusOK,
			Amount: d("-1712"), RoundedAmount: d("1712"), Category: "Каршеринг", Description: "Ситидрайв"},
		{OperationDate: at(2021, time.December, 10, 12), PaymentDate: "10.12.2021", CardNumber: "*5091", Status: "FAILED",
			Amount: d("-9999"), RoundedAmount: d("9999"), Category: "Каршеринг", Description: "Ситидрайв"},
		{OperationDate: at(2021, time.November, 20, 12), PaymentDate: "20.11.2021", CardNumber: "*4556", Status: core.StatusOK,
			Amount: d("-20000"), RoundedAmount: d("20000"), Category: core.CategoryTransfers, Description: "Иван П."},
	}
}
