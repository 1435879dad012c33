package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
	"kopilka/internal/log"
)

// CBRClient reads the Central Bank of Russia daily rates feed.
type CBRClient struct {
	url    string
	client *http.Client
	logger *log.Logger
}

var _ CurrencyFetcher = (*CBRClient)(nil)

type cbrDaily struct {
	Date   string `json:"Date"`
	Valute map[string]struct {
		CharCode string          `json:"CharCode"`
		Nominal  int             `json:"Nominal"`
		Value    decimal.Decimal `json:"Value"`
	} `json:"Valute"`
}

func NewCBRClient(url string, timeout time.Duration, logger *log.Logger) *CBRClient {
	if strings.TrimSpace(url) == "" {
		url = DefaultCurrencyURL
	}
	return &CBRClient{
		url:    url,
		client: newHTTPClient(timeout),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentRates),
	}
}

// CurrencyRates performs one request for all codes.
func (c *CBRClient) CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate {
	out := make([]core.CurrencyRate, 0, len(codes))
	if len(codes) == 0 {
		return out
	}
	daily, err := c.fetch(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Currency rates unavailable",
			log.FieldOperation, log.OpFetch,
			log.FieldURL, c.url,
			log.FieldError, err)
		return out
	}

	known := make([]string, 0, len(daily.Valute))
	for code := range daily.Valute {
		known = append(known, code)
	}
	for _, code := range codes {
		v, ok := daily.Valute[code]
		if !ok {
			c.logger.WarnContext(ctx, "Unknown currency code skipped",
				log.FieldSymbol, code,
				"closest", Closest(code, known))
			continue
		}
		out = append(out, core.CurrencyRate{Currency: code, Rate: v.Value})
	}
	return out
}

func (c *CBRClient) fetch(ctx context.Context) (cbrDaily, error) {
	var daily cbrDaily
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return daily, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return daily, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return daily, fmt.Errorf("get rates: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&daily); err != nil {
		return daily, fmt.Errorf("decode rates: %w", err)
	}
	return daily, nil
}
