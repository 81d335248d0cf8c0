package custodial

// client.go — HTTP client for the custodial trading API used for the
// Solana family. The service holds the keys and settles on-chain; we
// create a trade and poll it to settlement.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/arodriguezf/hypebot/internal/ports"
)

const (
	// Rate limit well under the documented 10 req/s account limit.
	tradesRatePerSec = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// Settlement polling
	settleTimeout      = 2 * time.Minute
	settlePollInterval = 2 * time.Second
)

// Client implements ports.CustodialTrader over the provider's REST API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter

	// pollInterval is shortened in tests.
	pollInterval time.Duration
}

// NewClient creates a client for the given API base URL and key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(tradesRatePerSec, 5),
		pollInterval: settlePollInterval,
	}
}

type tradeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
}

type balanceResponse struct {
	Asset   string  `json:"asset"`
	Balance float64 `json:"balance"`
}

// CreateTrade converts amount units of fromAsset into toAsset.
func (c *Client) CreateTrade(ctx context.Context, amount float64, fromAsset, toAsset string) (ports.CustodialTrade, error) {
	body := map[string]any{
		"amount": amount,
		"from":   fromAsset,
		"to":     toAsset,
	}
	var resp tradeResponse
	if err := c.post(ctx, "/v1/trades", body, &resp); err != nil {
		return ports.CustodialTrade{}, fmt.Errorf("custodial.CreateTrade: %w", err)
	}
	slog.Info("custodial: trade created", "id", resp.ID, "from", fromAsset, "to", toAsset, "amount", amount)
	return ports.CustodialTrade{ID: resp.ID, Status: resp.Status, TxHash: resp.TxHash}, nil
}

// WaitForSettlement polls the trade until it leaves the pending state or
// the settlement window closes.
func (c *Client) WaitForSettlement(ctx context.Context, tradeID string) (ports.CustodialTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var resp tradeResponse
		if err := c.get(ctx, "/v1/trades/"+tradeID, &resp); err != nil {
			return ports.CustodialTrade{}, fmt.Errorf("custodial.WaitForSettlement: %w", err)
		}
		if resp.Status != "pending" {
			return ports.CustodialTrade{ID: resp.ID, Status: resp.Status, TxHash: resp.TxHash}, nil
		}

		select {
		case <-ctx.Done():
			return ports.CustodialTrade{}, fmt.Errorf("custodial.WaitForSettlement: trade %s: %w", tradeID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Balance returns the available balance of asset.
func (c *Client) Balance(ctx context.Context, asset string) (float64, error) {
	var resp balanceResponse
	if err := c.get(ctx, "/v1/accounts/"+asset, &resp); err != nil {
		return 0, fmt.Errorf("custodial.Balance: %w", err)
	}
	return resp.Balance, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doWithRetry executes fn with rate limiting and exponential backoff.
// 4xx responses are not retried — the request will not get better.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var lastErr error
	wait := baseRetryWait

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return fmt.Errorf("api status %d: %s", resp.StatusCode, body)
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("api status %d: %s", resp.StatusCode, body)
			default:
				if out == nil {
					return nil
				}
				return json.Unmarshal(body, out)
			}
		}

		if attempt < maxRetries {
			slog.Debug("custodial: request failed, retrying", "attempt", attempt+1, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
