package watch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Actor halts markets via the admin API.
type Actor struct {
	client *resty.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetAuthToken(adminKey)
	return &Actor{client: client}
}

// Halt sends POST /api/v1/market/{id}/halt.
func (a *Actor) Halt(ctx context.Context, market string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		Post("/api/v1/market/" + url.PathEscape(market) + "/halt")
	if err != nil {
		return fmt.Errorf("halt %s: %w", market, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("halt %s failed (%d): %s", market, resp.StatusCode(), resp.String())
	}
	return nil
}
