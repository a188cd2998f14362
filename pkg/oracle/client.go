// Package oracle fetches the native-asset fiat price used to size bumps,
// with an explicit TTL cache in front of the upstream feed.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource returns the current native-asset price in fiat terms.
type PriceSource interface {
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

// Client is an HTTP price oracle client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a price oracle client
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type priceResponse struct {
	// Price arrives as a JSON number or numeric string depending on the
	// upstream feed; json.Number covers both.
	Price json.Number `json:"price"`
}

// NativePrice fetches the current price. A missing or non-numeric price is a
// hard failure; callers must never see a defaulted zero.
func (c *Client) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("price oracle returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	if parsed.Price == "" {
		return decimal.Zero, fmt.Errorf("price oracle response has no price")
	}
	price, err := decimal.NewFromString(parsed.Price.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("price oracle returned non-numeric price %q: %w", parsed.Price, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price oracle returned non-positive price %s", price)
	}

	return price, nil
}
