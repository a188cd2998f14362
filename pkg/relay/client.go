package relay

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Client is an HTTP client for the transaction relay.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewClient creates a relay client. pollInterval controls how often
// WaitForReceipt checks a pending operation.
func NewClient(baseURL, apiKey string, pollInterval time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type submitRequest struct {
	Account   string       `json:"account"`
	Calls     []submitCall `json:"calls"`
	Sponsored bool         `json:"sponsored"`
	Signature string       `json:"signature,omitempty"`
}

type submitCall struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

type submitResponse struct {
	OperationID string `json:"operationId"`
}

type statusResponse struct {
	Status string `json:"status"` // pending | confirmed | reverted | failed
	TxHash string `json:"txHash"`
	Block  uint64 `json:"blockNumber"`
	Reason string `json:"reason"`
}

// SubmitCalls submits a batch of calls from the given smart account, signed
// with the account's session key. A non-2xx response means the relay rejected
// the operation before submission.
func (c *Client) SubmitCalls(ctx context.Context, account common.Address, calls []Call, sponsored bool, key *ecdsa.PrivateKey) (OpHandle, error) {
	if len(calls) == 0 {
		return OpHandle{}, fmt.Errorf("no calls to submit")
	}

	body := submitRequest{
		Account:   account.Hex(),
		Sponsored: sponsored,
	}
	for _, call := range calls {
		value := "0"
		if call.Value != nil {
			value = call.Value.String()
		}
		body.Calls = append(body.Calls, submitCall{
			To:    call.To.Hex(),
			Data:  hexutil.Encode(call.Data),
			Value: value,
		})
	}

	if key != nil {
		sig, err := signOperation(body, key)
		if err != nil {
			return OpHandle{}, fmt.Errorf("failed to sign operation: %w", err)
		}
		body.Signature = sig
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return OpHandle{}, fmt.Errorf("failed to encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/operations", bytes.NewReader(payload))
	if err != nil {
		return OpHandle{}, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return OpHandle{}, fmt.Errorf("relay submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return OpHandle{}, fmt.Errorf("relay rejected operation with %d: %s", resp.StatusCode, string(msg))
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return OpHandle{}, fmt.Errorf("failed to decode submit response: %w", err)
	}
	if parsed.OperationID == "" {
		return OpHandle{}, fmt.Errorf("relay returned no operation id")
	}

	c.logger.Debug("submitted relay operation",
		zap.String("account", account.Hex()),
		zap.String("operation_id", parsed.OperationID))

	return OpHandle{ID: parsed.OperationID}, nil
}

// signOperation hashes the unsigned submit payload with an EIP-191 prefix and
// signs the digest with the session key.
func signOperation(body submitRequest, key *ecdsa.PrivateKey) (string, error) {
	body.Signature = ""
	unsigned, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	digest := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(unsigned))),
		unsigned,
	)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// WaitForReceipt polls the operation until it reaches a terminal state or ctx
// expires. Callers bound the wait with a deadline context; expiry surfaces as
// ctx.Err().
func (c *Client) WaitForReceipt(ctx context.Context, handle OpHandle) (Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.operationStatus(ctx, handle)
		if err != nil {
			// Transient status-endpoint failures are retried until the
			// deadline; the operation itself may still confirm.
			c.logger.Warn("relay status check failed", zap.String("operation_id", handle.ID), zap.Error(err))
		} else {
			switch status.Status {
			case "confirmed":
				return Receipt{
					TxHash:      common.HexToHash(status.TxHash),
					BlockNumber: status.Block,
				}, nil
			case "reverted":
				return Receipt{}, fmt.Errorf("%w: %s", ErrReverted, status.Reason)
			case "failed":
				return Receipt{}, fmt.Errorf("relay operation failed: %s", status.Reason)
			}
		}

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) operationStatus(ctx context.Context, handle OpHandle) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/operations/"+handle.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("relay status returned %d: %s", resp.StatusCode, string(msg))
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &parsed, nil
}
