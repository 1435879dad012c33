package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kopilka/internal/core"
)

func TestDashboardMainPage(t *testing.T) {
	reader := &fakeReader{txs: history()}
	settings := fakeSettings{core.Settings{Currencies: []string{"USD"}, Stocks: []string{"AAPL"}}}
	currency := fakeCurrency{rates: []core.CurrencyRate{{Currency: "USD", Rate: d("73.21")}}}
	stocks := fakeStocks{prices: []core.StockPrice{{Stock: "AAPL", Price: d("150.12")}}}
	clock := func() time.Time { return at(2021, time.December, 31, 9) }

	dash := NewDashboard(reader, settings, currency, stocks, WithClock(clock))
	ts := time.Date(2021, time.December, 31, 16, 0, 0, 0, time.Local)
	page, err := dash.MainPage(context.Background(), ts)
	if err != nil {
		t.Fatalf("MainPage: %v", err)
	}

	if page.Greeting != "Good morning" {
		t.Fatalf("greeting from clock, got %q", page.Greeting)
	}
	if !reader.start.Equal(at(2021, time.December, 1, 0)) || !reader.end.Equal(ts) {
		t.Fatalf("window [%v, %v]", reader.start, reader.end)
	}
	if len(page.Cards) != 2 {
		t.Fatalf("expected cards 7197 and 5091, got %+v", page.Cards)
	}
	if page.Cards[0].LastDigits != "7197" || !page.Cards[0].TotalSpent.Equal(d("-398.29")) || !page.Cards[0].Cashback.Equal(d("3.98")) {
		t.Fatalf("unexpected card %+v", page.Cards[0])
	}
	if len(page.TopTransactions) != 4 || page.TopTransactions[0].Description != "Ситидрайв" {
		t.Fatalf("unexpected top %+v", page.TopTransactions)
	}
	if len(page.CurrencyRates) != 1 || len(page.StockPrices) != 1 {
		t.Fatalf("rates missing: %+v %+v", page.CurrencyRates, page.StockPrices)
	}
}

func TestDashboardFetcherOrderIndependence(t *testing.T) {
	settings := fakeSettings{core.Settings{Currencies: []string{"USD", "EUR"}, Stocks: []string{"AAPL"}}}
	rates := []core.CurrencyRate{{Currency: "USD", Rate: d("73")}, {Currency: "EUR", Rate: d("82")}}
	prices := []core.StockPrice{{Stock: "AAPL", Price: d("150")}}
	ts := at(2021, time.December, 31, 16)
	clock := func() time.Time { return at(2021, time.December, 31, 20) }

	var docs []string
	for _, delays := range [][2]time.Duration{{0, 20 * time.Millisecond}, {20 * time.Millisecond, 0}} {
		dash := NewDashboard(&fakeReader{txs: history()}, settings,
			fakeCurrency{delay: delays[0], rates: rates},
			fakeStocks{delay: delays[1], prices: prices},
			WithClock(clock))
		page, err := dash.MainPage(context.Background(), ts)
		if err != nil {
			t.Fatalf("MainPage: %v", err)
		}
		doc, err := EncodeJSON(page)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		docs = append(docs, doc)
	}
	if docs[0] != docs[1] {
		t.Fatalf("output depends on completion order:\n%s\n---\n%s", docs[0], docs[1])
	}
}

func TestDashboardDegradesWithoutRates(t *testing.T) {
	dash := NewDashboard(&fakeReader{txs: history()}, nil, nil, nil)
	page, err := dash.MainPage(context.Background(), at(2021, time.December, 31, 16))
	if err != nil {
		t.Fatalf("MainPage: %v", err)
	}
	if page.CurrencyRates == nil || page.StockPrices == nil || len(page.CurrencyRates) != 0 || len(page.StockPrices) != 0 {
		t.Fatalf("expected empty non-nil rate lists, got %+v %+v", page.CurrencyRates, page.StockPrices)
	}
}

func TestDashboardSourceFailure(t *testing.T) {
	dash := NewDashboard(&fakeReader{err: errBackend}, nil, nil, nil)
	if _, err := dash.MainPage(context.Background(), at(2021, time.December, 31, 16)); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
