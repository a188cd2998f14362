package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client is an HTTP client for the quote service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a quote service client. apiKey may be empty when the
// upstream does not require one.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type quoteResponse struct {
	Transaction struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"transaction"`
	Issues []Issue `json:"issues"`
}

// GetQuote prices the requested swap. A non-2xx response is returned as an
// error carrying the upstream body so the caller can log the reason.
func (c *Client) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if req.SellAmount == nil || req.SellAmount.Sign() <= 0 {
		return nil, fmt.Errorf("sell amount must be positive")
	}

	q := url.Values{}
	q.Set("sellToken", req.SellToken.Hex())
	q.Set("buyToken", req.BuyToken.Hex())
	q.Set("sellAmount", req.SellAmount.String())
	q.Set("taker", req.Taker.Hex())
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("0x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("quote service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	if parsed.Transaction.To == "" {
		return nil, fmt.Errorf("quote response has no transaction target")
	}
	data, err := hexutil.Decode(parsed.Transaction.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid quote call data: %w", err)
	}

	value := new(big.Int)
	if parsed.Transaction.Value != "" {
		if _, ok := value.SetString(parsed.Transaction.Value, 10); !ok {
			return nil, fmt.Errorf("invalid quote value %q", parsed.Transaction.Value)
		}
	}

	return &Quote{
		Tx: CallData{
			To:    common.HexToAddress(parsed.Transaction.To),
			Data:  data,
			Value: value,
		},
		Issues: parsed.Issues,
	}, nil
}
