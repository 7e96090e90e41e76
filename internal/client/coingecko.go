package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"
	creditsCoin  = "aleo"
)

// CoinGeckoClient client for CoinGecko API
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client. An empty baseURL selects the
// public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coingeckoAPI
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreditsRate gets the price of one credit in the given fiat currency
func (c *CoinGeckoClient) CreditsRate(ctx context.Context, currency string) (string, error) {
	currency = strings.ToLower(currency)
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, creditsCoin, currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create rate request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get rate: %w", &errs.NetworkError{URL: url, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get rate: %w", &errs.NetworkError{URL: url, StatusCode: resp.StatusCode})
	}

	// {"aleo": {"usd": 0.21}}
	var priceResp map[string]map[string]float64
	if err := jsonx.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return "", fmt.Errorf("failed to decode rate: %w", err)
	}
	price, ok := priceResp[creditsCoin][currency]
	if !ok {
		return "", &errs.DecodeError{What: "rate", Err: fmt.Errorf("no %s price for %s", currency, creditsCoin)}
	}

	rate := strconv.FormatFloat(price, 'f', 2, 64)
	return rate, nil
}
