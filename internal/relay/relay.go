// Package relay rotates RPC calls across a prioritized list of Solana
// endpoints. The first endpoint is the designated primary; the rest are
// shuffled on every call so fallback load spreads instead of hammering one
// node. Auth and rate-limit failures flip a process-wide degraded flag that
// clears lazily after a cooldown.
package relay

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/observability"
	"solana-vortex/internal/solana"
)

// Default tuning values.
const (
	DefaultAttemptTimeout   = 8 * time.Second
	DefaultRateLimitPause   = 1 * time.Second
	DefaultTransientPause   = 200 * time.Millisecond
	DefaultDegradedCooldown = 60 * time.Second
)

// Endpoint is one RPC node plus its liveness state. The state is owned and
// mutated exclusively by the Relay.
type Endpoint struct {
	URL    string
	client *solana.HTTPClient

	lastFailure         time.Time
	consecutiveFailures int
}

// Client returns the underlying RPC client for this endpoint.
func (e *Endpoint) Client() *solana.HTTPClient {
	return e.client
}

// Relay executes caller-supplied operations against the endpoint rotation.
type Relay struct {
	endpoints []*Endpoint

	attemptTimeout   time.Duration
	rateLimitPause   time.Duration
	transientPause   time.Duration
	degradedCooldown time.Duration

	mu         sync.Mutex
	degraded   bool
	degradedAt time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	log     *logrus.Entry
	metrics *observability.Metrics
}

// Option configures a Relay.
type Option func(*Relay)

// WithAttemptTimeout sets the per-endpoint attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Relay) { r.attemptTimeout = d }
}

// WithPauses sets the rate-limit and transient inter-endpoint pauses.
func WithPauses(rateLimit, transient time.Duration) Option {
	return func(r *Relay) {
		r.rateLimitPause = rateLimit
		r.transientPause = transient
	}
}

// WithDegradedCooldown sets how long the degraded flag lasts before the next
// call clears it.
func WithDegradedCooldown(d time.Duration) Option {
	return func(r *Relay) { r.degradedCooldown = d }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithSleep injects the pause function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Relay) { r.sleep = sleep }
}

// WithSeed seeds the fallback shuffle, for deterministic tests.
func WithSeed(seed int64) Option {
	return func(r *Relay) { r.rng = rand.New(rand.NewSource(seed)) }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// New creates a Relay over the given endpoint URLs. The first URL is the
// primary and always tried first.
func New(urls []string, logger *logrus.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = logrus.New()
	}

	r := &Relay{
		attemptTimeout:   DefaultAttemptTimeout,
		rateLimitPause:   DefaultRateLimitPause,
		transientPause:   DefaultTransientPause,
		degradedCooldown: DefaultDegradedCooldown,
		now:              time.Now,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		log:              logger.WithField("component", "relay"),
	}
	r.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	for _, u := range urls {
		r.endpoints = append(r.endpoints, &Endpoint{
			URL:    u,
			client: solana.NewHTTPClient(u),
		})
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Degraded reports whether the relay is currently in degraded mode.
func (r *Relay) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Endpoints returns the configured endpoints in priority order.
func (r *Relay) Endpoints() []*Endpoint {
	return r.endpoints
}

// Operation is a caller-supplied ledger query executed against one endpoint.
type Operation[T any] func(ctx context.Context, client *solana.HTTPClient) (T, error)

// Execute runs op against the rotation until one endpoint succeeds. Transient
// failures rotate to the next endpoint; fatal failures are re-raised
// immediately; full exhaustion raises ExhaustedError with the last failure.
func Execute[T any](ctx context.Context, r *Relay, op Operation[T]) (T, error) {
	var zero T

	if len(r.endpoints) == 0 {
		return zero, ErrNoEndpoints
	}

	r.maybeClearDegraded()

	order := r.rotation()
	var lastErr error

	for i, ep := range order {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		result, err := op(attemptCtx, ep.client)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil
		cancel()

		if err == nil {
			r.markSuccess(ep)
			r.countAttempt("success")
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if timedOut {
			err = &attemptError{kind: ErrTimeout, cause: err}
		}

		switch classify(err) {
		case classRateLimited:
			wasDegraded := r.markDegraded()
			r.markFailure(ep)
			r.countAttempt("rate_limited")
			lastErr = err
			// Suppress repeated warnings while already degraded
			if !wasDegraded {
				r.log.WithFields(logrus.Fields{"endpoint": ep.URL}).
					WithError(err).Warn("rpc auth/rate-limit issue, rotating")
			}
			if i < len(order)-1 {
				if serr := r.sleep(ctx, r.rateLimitPause); serr != nil {
					return zero, serr
				}
			}

		case classTransient:
			r.markFailure(ep)
			r.countAttempt("transient")
			lastErr = err
			r.log.WithFields(logrus.Fields{"endpoint": ep.URL}).
				WithError(err).Warn("rpc uplink failure, rotating")
			if i < len(order)-1 {
				if serr := r.sleep(ctx, r.transientPause); serr != nil {
					return zero, serr
				}
			}

		default:
			r.countAttempt("fatal")
			return zero, err
		}
	}

	if r.metrics != nil {
		r.metrics.RelayExhaustions.Inc()
	}
	return zero, &ExhaustedError{Attempts: len(order), Last: lastErr}
}

// rotation returns the primary followed by the shuffled fallbacks.
func (r *Relay) rotation() []*Endpoint {
	order := make([]*Endpoint, len(r.endpoints))
	copy(order, r.endpoints)
	if len(order) > 2 {
		r.rngMu.Lock()
		fallbacks := order[1:]
		r.rng.Shuffle(len(fallbacks), func(i, j int) {
			fallbacks[i], fallbacks[j] = fallbacks[j], fallbacks[i]
		})
		r.rngMu.Unlock()
	}
	return order
}

// maybeClearDegraded lazily clears the degraded flag once the cooldown has
// elapsed since it was set.
func (r *Relay) maybeClearDegraded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded && r.now().Sub(r.degradedAt) > r.degradedCooldown {
		r.degraded = false
		r.log.Info("attempting recovery from degraded status")
		if r.metrics != nil {
			r.metrics.RelayDegraded.Set(0)
		}
	}
}

// markDegraded sets the degraded flag, returning its previous value.
func (r *Relay) markDegraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was := r.degraded
	r.degraded = true
	r.degradedAt = r.now()
	if r.metrics != nil {
		r.metrics.RelayDegraded.Set(1)
	}
	return was
}

func (r *Relay) markFailure(ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep.lastFailure = r.now()
	ep.consecutiveFailures++
}

func (r *Relay) markSuccess(ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep.consecutiveFailures = 0
}

func (r *Relay) countAttempt(outcome string) {
	if r.metrics != nil {
		r.metrics.EndpointAttempts.WithLabelValues(outcome).Inc()
	}
}

// attemptError tags an endpoint failure with its classification sentinel.
type attemptError struct {
	kind  error
	cause error
}

func (e *attemptError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *attemptError) Is(target error) bool {
	return target == e.kind
}

func (e *attemptError) Unwrap() error {
	return e.cause
}

// failure classes
type class int

const (
	classFatal class = iota
	classTransient
	classRateLimited
)

// classify decides how a failed attempt affects the rotation. Anything not
// recognized as transient is fatal for the whole call.
func classify(err error) class {
	if errors.Is(err, ErrTimeout) {
		return classTransient
	}
	if errors.Is(err, ErrRateLimited) {
		return classRateLimited
	}

	var statusErr *solana.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case 401, 403, 429:
			return classRateLimited
		default:
			return classTransient
		}
	}

	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		// The node understood the request and rejected it
		return classFatal
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return classTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	return classFatal
}
