package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/rates"
	"kopilka/internal/reports"
	"kopilka/internal/source"
)

// SettingsLoader supplies the user's currency and ticker lists.
type SettingsLoader interface {
	Load(ctx context.Context) core.Settings
}

// Dashboard assembles the main page for a reference timestamp.
type Dashboard struct {
	source   source.Reader
	settings SettingsLoader
	currency rates.CurrencyFetcher
	stocks   rates.StockFetcher
	now      func() time.Time
	logger   *log.Logger
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithClock replaces time.Now for the greeting.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

// WithLogger sets the dashboard logger.
func WithLogger(l *log.Logger) DashboardOption {
	return func(d *Dashboard) { d.logger = l }
}

// NewDashboard wires the composer. Nil settings or fetchers yield empty rate lists.
func NewDashboard(src source.Reader, settings SettingsLoader, currency rates.CurrencyFetcher, stocks rates.StockFetcher, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		source:   src,
		settings: settings,
		currency: currency,
		stocks:   stocks,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = log.OrDiscard(d.logger).WithComponent(log.ComponentDashboard)
	return d
}

// MainPage reads OK transactions from the start of ts's month up to ts and
// combines them with the configured rates. Only a record source failure is
// returned; rate failures leave their lists empty.
func (d *Dashboard) MainPage(ctx context.Context, ts time.Time) (core.MainPage, error) {
	start := time.Now()
	page := core.MainPage{
		Greeting:        reports.Greeting(d.now().Hour()),
		Cards:           []core.CardSpend{},
		TopTransactions: []core.TopTransaction{},
		CurrencyRates:   []core.CurrencyRate{},
		StockPrices:     []core.StockPrice{},
	}

	settings := core.Settings{}
	if d.settings != nil {
		settings = d.settings.Load(ctx)
	}

	// Each goroutine owns one field of page.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := d.source.TransactionsBetween(gctx, core.StartOfMonth(ts), ts)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		page.Cards = reports.CardSpends(txs)
		page.TopTransactions = reports.TopTransactions(txs, reports.MainPageTopN)
		return nil
	})
	if d.currency != nil && len(settings.Currencies) > 0 {
		g.Go(func() error {
			if r := d.currency.CurrencyRates(gctx, settings.Currencies); r != nil {
				page.CurrencyRates = r
			}
			return nil
		})
	}
	if d.stocks != nil && len(settings.Stocks) > 0 {
		g.Go(func() error {
			if p := d.stocks.StockPrices(gctx, settings.Stocks); p != nil {
				page.StockPrices = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.ErrorContext(ctx, "Main page failed",
			log.FieldOperation, log.OpMainPage,
			log.FieldError, err)
		return core.MainPage{}, err
	}

	d.logger.InfoContext(ctx, "Main page composed",
		log.FieldOperation, log.OpMainPage,
		log.FieldDate, ts.Format(core.TimestampLayout),
		"cards", len(page.Cards),
		"currencies", len(page.CurrencyRates),
		"stocks", len(page.StockPrices),
		log.FieldDuration, time.Since(start).Milliseconds())
	return page, nil
}
