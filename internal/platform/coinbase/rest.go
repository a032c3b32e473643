// Package coinbase provides clients for the Coinbase public spot price REST
// endpoint and the exchange ticker WebSocket feed.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// SourceREST tags spot prices obtained from the REST endpoint.
const SourceREST = "coinbase_rest"

// SpotClient fetches spot prices from the Coinbase public price API.
type SpotClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewSpotClient creates a SpotClient.
//
// baseURL is the API root, e.g. "https://api.coinbase.com".
func NewSpotClient(baseURL string) *SpotClient {
	return &SpotClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// Spot returns the current spot price for product, e.g. "BTC-USD".
func (c *SpotClient) Spot(ctx context.Context, product string) (domain.SpotPrice, error) {
	body, err := c.doGet(ctx, "/v2/prices/"+product+"/spot")
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("coinbase/rest: get spot: %w", err)
	}

	var resp spotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.SpotPrice{}, fmt.Errorf("coinbase/rest: decode spot: %w", err)
	}
	if resp.Data.Currency != "" && !strings.EqualFold(resp.Data.Currency, "USD") {
		return domain.SpotPrice{}, fmt.Errorf("coinbase/rest: %w: unexpected currency %q", domain.ErrInvalidPrice, resp.Data.Currency)
	}

	price, err := decimal.NewFromString(resp.Data.Amount)
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("coinbase/rest: parse amount %q: %w", resp.Data.Amount, err)
	}
	if !price.IsPositive() {
		return domain.SpotPrice{}, fmt.Errorf("coinbase/rest: %w: %s", domain.ErrInvalidPrice, price)
	}

	return domain.SpotPrice{
		PriceUSD: price,
		AsOf:     c.now().UTC(),
		Source:   SourceREST,
	}, nil
}

func (c *SpotClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
