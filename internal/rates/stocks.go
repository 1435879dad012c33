package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kopilka/internal/core"
	"kopilka/internal/log"
)

// maxParallelQuotes bounds concurrent quote requests; the free API tier is rate limited.
const maxParallelQuotes = 4

// AlphaVantageClient looks up GLOBAL_QUOTE prices, one request per symbol.
type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

var _ StockFetcher = (*AlphaVantageClient)(nil)

type globalQuote struct {
	Quote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

func NewAlphaVantageClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) *AlphaVantageClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultStockURL
	}
	return &AlphaVantageClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentRates),
	}
}

// StockPrices queries symbols concurrently; each result lands in its own slot
// so output order follows input order.
func (c *AlphaVantageClient) StockPrices(ctx context.Context, symbols []string) []core.StockPrice {
	slots := make([]*core.StockPrice, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQuotes)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			price, err := c.quote(gctx, symbol)
			if err != nil {
				c.logger.WarnContext(ctx, "Stock price skipped",
					log.FieldSymbol, symbol,
					log.FieldError, err)
				return nil
			}
			slots[i] = &core.StockPrice{Stock: symbol, Price: price}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]core.StockPrice, 0, len(symbols))
	for _, p := range slots {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (c *AlphaVantageClient) quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("get quote: unexpected status %d", resp.StatusCode)
	}

	var body globalQuote
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode quote: %w", err)
	}
	if body.ErrorMessage != "" {
		return decimal.Zero, fmt.Errorf("provider error: %s", body.ErrorMessage)
	}
	if body.Quote.Price == "" {
		if body.Note != "" {
			return decimal.Zero, fmt.Errorf("no price: %s", body.Note)
		}
		return decimal.Zero, fmt.Errorf("no price in response")
	}
	price, err := decimal.NewFromString(body.Quote.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", body.Quote.Price, err)
	}
	return price, nil
}
