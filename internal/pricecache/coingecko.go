package pricecache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/httputil"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3/simple/price"

// symbol -> coingecko id for the assets the service quotes against.
var coingeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"XMR":   "monero",
	"LTC":   "litecoin",
	"DOGE":  "dogecoin",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
}

// CoinGeckoSource fetches USD spot prices from the CoinGecko simple API.
type CoinGeckoSource struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *logrus.Logger
}

func NewCoinGeckoSource(logger *logrus.Logger) *CoinGeckoSource {
	return &CoinGeckoSource{
		baseURL:    coingeckoBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		logger: logger,
	}
}

func (s *CoinGeckoSource) FetchPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(assets))
	idToSymbol := make(map[string]string, len(assets))
	for _, asset := range assets {
		symbol := strings.ToUpper(asset)
		id, ok := coingeckoIDs[symbol]
		if !ok {
			s.logger.Warnf("no coingecko id for asset %s, skipping", symbol)
			continue
		}
		ids = append(ids, id)
		idToSymbol[id] = symbol
	}
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	reqURL := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", s.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, s.logger, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data map[string]struct {
		USD decimal.Decimal `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(data))
	for id, entry := range data {
		symbol, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if entry.USD.Sign() <= 0 {
			s.logger.Warnf("invalid price for %s: %s", symbol, entry.USD)
			continue
		}
		prices[symbol] = entry.USD
	}
	return prices, nil
}
