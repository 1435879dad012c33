package rates

import (
	"context"
	"time"

	"kopilka/internal/cache"
	"kopilka/internal/core"
)

const cacheSize = 256

// CachedCurrency remembers rates per code so repeated dashboards inside the
// TTL skip the network.
type CachedCurrency struct {
	next  CurrencyFetcher
	cache *cache.LRUCache[core.CurrencyRate]
}

var _ CurrencyFetcher = (*CachedCurrency)(nil)

func NewCachedCurrency(next CurrencyFetcher, ttl time.Duration, opts ...cache.Option) *CachedCurrency {
	return &CachedCurrency{next: next, cache: cache.NewLRUCache[core.CurrencyRate](cacheSize, ttl, opts...)}
}

// Cache exposes the underlying cache for cleanup registration.
func (c *CachedCurrency) Cache() *cache.LRUCache[core.CurrencyRate] { return c.cache }

func (c *CachedCurrency) CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate {
	found := make(map[string]core.CurrencyRate, len(codes))
	var missing []string
	for _, code := range codes {
		if r, ok := c.cache.Get(code); ok {
			found[code] = r
			continue
		}
		missing = append(missing, code)
	}
	if len(missing) > 0 {
		for _, r := range c.next.CurrencyRates(ctx, missing) {
			c.cache.Set(r.Currency, r)
			found[r.Currency] = r
		}
	}

	out := make([]core.CurrencyRate, 0, len(codes))
	for _, code := range codes {
		if r, ok := found[code]; ok {
			out = append(out, r)
		}
	}
	return out
}

// CachedStocks is the stock price counterpart of CachedCurrency.
type CachedStocks struct {
	next  StockFetcher
	cache *cache.LRUCache[core.StockPrice]
}

var _ StockFetcher = (*CachedStocks)(nil)

func NewCachedStocks(next StockFetcher, ttl time.Duration, opts ...cache.Option) *CachedStocks {
	return &CachedStocks{next: next, cache: cache.NewLRUCache[core.StockPrice](cacheSize, ttl, opts...)}
}

// Cache exposes the underlying cache for cleanup registration.
func (c *CachedStocks) Cache() *cache.LRUCache[core.StockPrice] { return c.cache }

func (c *CachedStocks) StockPrices(ctx context.Context, symbols []string) []core.StockPrice {
	found := make(map[string]core.StockPrice, len(symbols))
	var missing []string
	for _, s := range symbols {
		if p, ok := c.cache.Get(s); ok {
			found[s] = p
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) > 0 {
		for _, p := range c.next.StockPrices(ctx, missing) {
			c.cache.Set(p.Stock, p)
			found[p.Stock] = p
		}
	}

	out := make([]core.StockPrice, 0, len(symbols))
	for _, s := range symbols {
		if p, ok := found[s]; ok {
			out = append(out, p)
		}
	}
	return out
}
