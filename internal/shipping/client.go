package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-service/internal/util"

	gocache "github.com/patrickmn/go-cache"
)

// Quote is a carrier shipping estimate. Price is in centavos.
type Quote struct {
	Price   int64 `json:"price"`
	ETADays int   `json:"eta_days"`
}

// Client calls the carrier quote API. Quotes for the same destination and
// weight are memoized in-process so a busy checkout page does not hammer the
// carrier.
type Client struct {
	baseURL    string
	token      string
	originZip  string
	httpClient *http.Client
	quotes     *gocache.Cache
}

// NewClient creates a carrier quote client
func NewClient(baseURL, token, originZip string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		originZip:  originZip,
		httpClient: &http.Client{Timeout: timeout},
		quotes:     gocache.New(5*time.Minute, 10*time.Minute),
	}
}

type quoteRequest struct {
	OriginZip      string `json:"origin_zip"`
	DestinationZip string `json:"destination_zip"`
	WeightGrams    int    `json:"weight_grams"`
}

type quoteResponse struct {
	Price   int64 `json:"price"`
	ETADays int   `json:"eta_days"`
}

// GetQuote returns the shipping price and ETA for a destination zip and
// package weight.
func (c *Client) GetQuote(ctx context.Context, destinationZip string, weightGrams int) (*Quote, error) {
	key := fmt.Sprintf("%s:%d", destinationZip, weightGrams)
	if cached, ok := c.quotes.Get(key); ok {
		return cached.(*Quote), nil
	}

	start := time.Now()
	defer func() {
		util.ShippingQuoteLatency.Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(quoteRequest{
		OriginZip:      c.originZip,
		DestinationZip: destinationZip,
		WeightGrams:    weightGrams,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quotes", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("carrier quote call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("carrier quote failed with status %d", resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	quote := &Quote{Price: qr.Price, ETADays: qr.ETADays}
	c.quotes.Set(key, quote, gocache.DefaultExpiration)
	return quote, nil
}
