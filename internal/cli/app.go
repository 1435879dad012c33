package cli

import (
	"context"
	"time"

	"kopilka/internal/backend"
	"kopilka/internal/cache"
	"kopilka/internal/config"
	"kopilka/internal/log"
	"kopilka/internal/rates"
	"kopilka/internal/services"
	"kopilka/internal/settings"
)

// App is the wired report stack.
type App struct {
	Reports *services.Reports
	Backend *backend.BackendResult
	Caches  *cache.Manager
}

// AppOptions tunes BuildApp for the running process.
type AppOptions struct {
	// CacheRates wraps the fetchers in TTL caches. Long-running processes set it.
	CacheRates bool
	Now        func() time.Time
}

// BuildApp connects the configured backend, settings and rate fetchers.
func BuildApp(ctx context.Context, logger *log.Logger, cfg *config.Config, opts AppOptions) (*App, error) {
	res, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var (
		currency rates.CurrencyFetcher = rates.NewCBRClient(cfg.CurrencyRatesURL, cfg.HTTPTimeout, logger)
		stocks   rates.StockFetcher    = rates.NewAlphaVantageClient(cfg.StockAPIURL, cfg.StockAPIKey, cfg.HTTPTimeout, logger)
		manager  *cache.Manager
	)
	if opts.CacheRates && cfg.RatesCacheTTL > 0 {
		cc := rates.NewCachedCurrency(currency, cfg.RatesCacheTTL)
		cs := rates.NewCachedStocks(stocks, cfg.RatesCacheTTL)
		currency, stocks = cc, cs
		manager = cache.NewManager(logger)
		manager.Register(cc.Cache())
		manager.Register(cs.Cache())
		manager.StartCleanup(ctx, cfg.RatesCacheTTL)
	}

	dash := services.NewDashboard(res.Reader, settings.NewLoader(cfg.SettingsPath, logger), currency, stocks,
		services.WithClock(now), services.WithLogger(logger))
	return &App{
		Reports: services.NewReports(res.Reader, dash, now, logger),
		Backend: res,
		Caches:  manager,
	}, nil
}

// Ready checks that the record source answers. Backends with a cheap health
// check use it; the rest are read once.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Backend.Reader.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := a.Backend.Reader.Transactions(ctx)
	return err
}

// ImportLog returns the backend's import record, or nil when the backend
// keeps none.
func (a *App) ImportLog() func(context.Context) (time.Time, int, error) {
	if l, ok := a.Backend.Reader.(interface {
		LastImport(context.Context) (time.Time, int, error)
	}); ok {
		return l.LastImport
	}
	return nil
}

// Close releases the backend and stops cache cleanup.
func (a *App) Close() error {
	if a.Caches != nil {
		a.Caches.Stop()
	}
	return a.Backend.Close()
}
