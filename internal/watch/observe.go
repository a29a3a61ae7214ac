// Package watch implements the market steward. It observes markets via the
// API, decides which ones moved too far in one sample, and halts them via
// the admin endpoint.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// MarketInfo mirrors items from GET /api/v1/markets.
type MarketInfo struct {
	ID         string  `json:"id"`
	Active     bool    `json:"active"`
	Items      int     `json:"items"`
	CPI        float64 `json:"cpi"`
	LastChange float64 `json:"last_change"`
	Change1h   float64 `json:"change_1h"`
	Change24h  float64 `json:"change_24h"`
	Operations int64   `json:"operations_last_hour"`
}

// Observer fetches market state from the API.
type Observer struct {
	client *resty.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	return &Observer{client: client}
}

// Observe returns every market's summary.
func (o *Observer) Observe(ctx context.Context) ([]MarketInfo, error) {
	var markets []MarketInfo
	resp, err := o.client.R().
		SetContext(ctx).
		SetResult(&markets).
		Get("/api/v1/markets")
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch markets: status %d: %s", resp.StatusCode(), resp.String())
	}
	return markets, nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// responds, ctx ends or timeout passes.
func (o *Observer) WaitReady(ctx context.Context, timeout time.Duration) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(timeout)

	for {
		resp, err := o.client.R().SetContext(ctx).Get("/api/v1/status")
		if err == nil && resp.StatusCode() == http.StatusOK {
			slog.Info("market API is ready")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("market API not ready after %s", timeout)
		}
		slog.Info("market API not ready, retrying", "backoff", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
