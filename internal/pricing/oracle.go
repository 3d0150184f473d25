// Package pricing maintains a short-TTL cached reference price for SOL,
// used to normalize stablecoin-denominated swaps. Price is an auxiliary
// conversion factor, so every failure path degrades to a usable value.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/observability"
)

// WSOLMint is the wrapped SOL mint address used as the quote ID.
const WSOLMint = "So11111111111111111111111111111111111111112"

// DefaultQuoteURL is the Jupiter price endpoint for SOL.
const DefaultQuoteURL = "https://api.jup.ag/price/v2?ids=" + WSOLMint

// Default tuning values.
const (
	DefaultTTL       = 60 * time.Second
	DefaultSOLPrice  = 150.0 // reference point if all APIs are dead
	defaultFetchWait = 5 * time.Second
)

// Oracle caches the SOL/USD reference price with a 60s TTL. GetReferencePrice
// never blocks beyond one fetch attempt and never fails: on refresh failure it
// returns the last known value, or the hardcoded default if nothing has ever
// been fetched.
type Oracle struct {
	url    string
	client *http.Client
	ttl    time.Duration
	def    float64
	now    func() time.Time

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time

	log     *logrus.Entry
	metrics *observability.Metrics
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithQuoteURL overrides the price quote endpoint.
func WithQuoteURL(url string) Option {
	return func(o *Oracle) { o.url = url }
}

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) { o.ttl = ttl }
}

// WithDefaultPrice overrides the last-resort price.
func WithDefaultPrice(p float64) Option {
	return func(o *Oracle) { o.def = p }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Oracle) { o.client = c }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Oracle) { o.metrics = m }
}

// NewOracle creates a price oracle with default tuning.
func NewOracle(logger *logrus.Logger, opts ...Option) *Oracle {
	if logger == nil {
		logger = logrus.New()
	}
	o := &Oracle{
		url:    DefaultQuoteURL,
		client: &http.Client{Timeout: defaultFetchWait},
		ttl:    DefaultTTL,
		def:    DefaultSOLPrice,
		now:    time.Now,
		log:    logger.WithField("component", "pricing"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetReferencePrice returns the cached SOL price if younger than the TTL,
// otherwise attempts one refresh. Fail-soft: stale value beats an error,
// and the hardcoded default beats nothing.
func (o *Oracle) GetReferencePrice(ctx context.Context) float64 {
	o.mu.Lock()
	cached, fetchedAt := o.cached, o.fetchedAt
	o.mu.Unlock()

	if cached > 0 && o.now().Sub(fetchedAt) < o.ttl {
		return cached
	}

	price, err := o.fetch(ctx)
	if err != nil || price <= 0 {
		if err != nil {
			o.log.WithError(err).Warn("price refresh failed, using cache")
		}
		if cached > 0 {
			o.countRefresh("stale")
			return cached
		}
		o.countRefresh("default")
		return o.def
	}

	o.mu.Lock()
	o.cached = price
	o.fetchedAt = o.now()
	o.mu.Unlock()

	o.countRefresh("ok")
	return price
}

// fetch pulls the current quote from the price endpoint.
func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
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

	entry, ok := payload.Data[WSOLMint]
	if !ok || entry.Price == "" {
		return 0, fmt.Errorf("quote missing price for %s", WSOLMint)
	}

	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", entry.Price, err)
	}
	return price, nil
}

func (o *Oracle) countRefresh(result string) {
	if o.metrics != nil {
		o.metrics.PriceRefreshes.WithLabelValues(result).Inc()
	}
}

// quoteResponse is the Jupiter price API payload shape.
type quoteResponse struct {
	Data map[string]quoteEntry `json:"data"`
}

type quoteEntry struct {
	Price string `json:"price"`
}
