package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultTokenQuoteURL is the Jupiter price endpoint queried per mint.
const DefaultTokenQuoteURL = "https://api.jup.ag/price/v2"

// TokenQuoter fetches the current USD price of an arbitrary token mint. Unlike
// the SOL oracle it does not cache: chart streams want the freshest quote each
// tick and pace their own requests.
type TokenQuoter struct {
	baseURL string
	client  *http.Client
}

// TokenQuoterOption configures a TokenQuoter.
type TokenQuoterOption func(*TokenQuoter)

// WithTokenQuoteURL overrides the quote endpoint.
func WithTokenQuoteURL(url string) TokenQuoterOption {
	return func(q *TokenQuoter) { q.baseURL = url }
}

// WithTokenHTTPClient sets a custom http.Client.
func WithTokenHTTPClient(c *http.Client) TokenQuoterOption {
	return func(q *TokenQuoter) { q.client = c }
}

// NewTokenQuoter creates a per-mint price client.
func NewTokenQuoter(opts ...TokenQuoterOption) *TokenQuoter {
	q := &TokenQuoter{
		baseURL: DefaultTokenQuoteURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// TokenPrice returns the current USD price for mint, or an error when the
// endpoint has no quote.
func (q *TokenQuoter) TokenPrice(ctx context.Context, mint string) (float64, error) {
	url := fmt.Sprintf("%s?ids=%s", q.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote endpoint status %d", resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode quote: %w", err)
	}

	entry, ok := payload.Data[mint]
	if !ok || entry.Price == "" {
		return 0, fmt.Errorf("quote missing price for %s", mint)
	}

	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", entry.Price, err)
	}
	return price, nil
}
