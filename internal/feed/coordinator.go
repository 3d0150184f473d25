package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/domain"
	"solana-vortex/internal/observability"
	"solana-vortex/internal/security"
	"solana-vortex/internal/solana"
)

// SwapDecoder turns a candidate signature into a classified swap. A nil swap
// with a nil error means the transaction is not a tracked-token swap.
type SwapDecoder interface {
	Decode(ctx context.Context, signature, mint string) (*domain.ClassifiedSwap, error)
}

// LogStreamer opens push subscriptions for log notifications mentioning an
// address.
type LogStreamer interface {
	SubscribeLogs(ctx context.Context, filter solana.LogsFilter) (*solana.LogSubscription, error)
	Unsubscribe(ctx context.Context, sub *solana.LogSubscription) error
}

// SignatureLister returns the most recent signatures touching an address,
// newest first.
type SignatureLister interface {
	RecentSignatures(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
}

// PriceQuoter resolves the current USD price of a token mint.
type PriceQuoter interface {
	TokenPrice(ctx context.Context, mint string) (float64, error)
}

// EventHandler receives classified swaps. It is invoked from the
// subscription's own goroutine and must not block for long.
type EventHandler func(*domain.ClassifiedSwap)

// TickHandler receives chart ticks.
type TickHandler func(domain.ChartTick)

// Config bounds the feed's polling and dedupe behavior.
type Config struct {
	PollLimit       int
	PollFloor       time.Duration
	PollCeiling     time.Duration
	WindowCapacity  int
	CacheCapacity   int
	TickInterval    time.Duration
	TickFailureCeil time.Duration
}

// DefaultConfig returns the production poll and dedupe bounds.
func DefaultConfig() Config {
	return Config{
		PollLimit:       10,
		PollFloor:       2 * time.Second,
		PollCeiling:     60 * time.Second,
		WindowCapacity:  1000,
		CacheCapacity:   500,
		TickInterval:    time.Second,
		TickFailureCeil: 30 * time.Second,
	}
}

// Coordinator owns live token subscriptions. Each subscription prefers the
// push path (log notifications over websocket) and falls back to signature
// polling when push is unavailable. All dedupe and cache state is owned here,
// never process-wide.
type Coordinator struct {
	decoder SwapDecoder
	pusher  LogStreamer
	lister  SignatureLister
	quoter  PriceQuoter
	cfg     Config
	log     *logrus.Entry
	metrics *observability.Metrics
	now     func() time.Time
	cache   *eventCache
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPusher enables the push path. Without it every subscription polls.
func WithPusher(p LogStreamer) Option {
	return func(c *Coordinator) { c.pusher = p }
}

// WithQuoter enables chart subscriptions.
func WithQuoter(q PriceQuoter) Option {
	return func(c *Coordinator) { c.quoter = q }
}

// WithConfig overrides the default poll and dedupe bounds.
func WithConfig(cfg Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

// WithMetrics attaches feed metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator builds a feed coordinator around a decoder and a signature
// lister. The push path and chart quoter are optional.
func NewCoordinator(decoder SwapDecoder, lister SignatureLister, logger *logrus.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Coordinator{
		decoder: decoder,
		lister:  lister,
		cfg:     DefaultConfig(),
		log:     logger.WithField("component", "feed"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = newEventCache(c.cfg.CacheCapacity)
	return c
}

// State of one subscription.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateStreaming
	StatePolling
	StateSuspended
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StatePolling:
		return "polling"
	case StateSuspended:
		return "suspended"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

type leaveReason int

const (
	leaveStopped leaveReason = iota
	leaveSuspended
	leaveDisconnected
)

// Subscription is a live event stream for one token mint. Stop, Suspend and
// Resume are safe to call from any goroutine and are idempotent.
type Subscription struct {
	mint    string
	handler EventHandler
	c       *Coordinator
	log     *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	window *Window

	mu        sync.Mutex
	state     State
	suspended bool
	suspendCh chan struct{}
	resumeCh  chan struct{}
	stopOnce  sync.Once
}

// Subscribe starts a live swap stream for mint. Events are delivered to
// handler until the subscription is stopped or ctx is cancelled.
func (c *Coordinator) Subscribe(ctx context.Context, mint string, handler EventHandler) (*Subscription, error) {
	if err := security.ValidateAddress(mint); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", mint, err)
	}
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", mint)
	}
	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		mint:      mint,
		handler:   handler,
		c:         c,
		log:       c.log.WithField("mint", domain.ShortWallet(mint)),
		ctx:       subCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		window:    NewWindow(c.cfg.WindowCapacity),
		state:     StateIdle,
		suspendCh: make(chan struct{}),
		resumeCh:  make(chan struct{}),
	}
	if c.metrics != nil {
		c.metrics.ActiveSubscriptions.Inc()
	}
	go s.run()
	return s, nil
}

// Stop tears the subscription down and waits until its loop has exited. After
// Stop returns no further events are delivered.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Suspend pauses delivery and releases the push channel. No-op when already
// suspended or stopped.
func (s *Subscription) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended || s.state == StateStopped {
		return
	}
	s.suspended = true
	s.resumeCh = make(chan struct{})
	close(s.suspendCh)
	s.log.Info("subscription suspended")
}

// Resume re-establishes the stream, retrying the push path first. No-op when
// not suspended.
func (s *Subscription) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.suspended || s.state == StateStopped {
		return
	}
	s.suspended = false
	s.suspendCh = make(chan struct{})
	close(s.resumeCh)
	s.log.Info("subscription resumed")
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Subscription) isSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *Subscription) suspendSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspendCh
}

func (s *Subscription) resumeSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeCh
}

func (s *Subscription) run() {
	defer close(s.done)
	defer func() {
		s.setState(StateStopped)
		if s.c.metrics != nil {
			s.c.metrics.ActiveSubscriptions.Dec()
		}
	}()

	for {
		if s.ctx.Err() != nil {
			return
		}
		if s.isSuspended() {
			s.setState(StateSuspended)
			select {
			case <-s.ctx.Done():
				return
			case <-s.resumeSignal():
			}
			continue
		}

		if s.c.pusher == nil {
			if s.pollLoop() == leaveStopped {
				return
			}
			continue
		}

		s.setState(StateSubscribing)
		sub, err := s.c.pusher.SubscribeLogs(s.ctx, solana.LogsFilter{Mentions: []string{s.mint}})
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Warn("push subscription failed, polling instead")
			if s.pollLoop() == leaveStopped {
				return
			}
			continue
		}

		s.setState(StateStreaming)
		s.log.Info("push subscription established")
		reason := s.consumePush(sub)
		s.teardownPush(sub)
		if reason == leaveStopped {
			return
		}
		if reason == leaveDisconnected {
			s.log.Warn("push channel closed, re-establishing")
		}
	}
}

func (s *Subscription) consumePush(sub *solana.LogSubscription) leaveReason {
	for {
		select {
		case <-s.ctx.Done():
			return leaveStopped
		case <-s.suspendSignal():
			return leaveSuspended
		case notif, ok := <-sub.C:
			if !ok {
				return leaveDisconnected
			}
			if notif.Err != nil {
				continue
			}
			if !isSwapCandidate(notif.Logs) {
				continue
			}
			s.processCandidate(notif.Signature)
		}
	}
}

func (s *Subscription) teardownPush(sub *solana.LogSubscription) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.c.pusher.Unsubscribe(ctx, sub); err != nil {
		s.log.WithError(err).Debug("unsubscribe failed")
	}
}

// pollLoop fetches recent signatures until the subscription is stopped or
// suspended. Failures double the delay up to the ceiling; a success resets it
// to the floor.
func (s *Subscription) pollLoop() leaveReason {
	s.setState(StatePolling)
	bo := newBackoff(s.c.cfg.PollFloor, s.c.cfg.PollCeiling)
	for {
		err := s.pollOnce()
		if s.ctx.Err() != nil {
			return leaveStopped
		}
		var delay time.Duration
		if err != nil {
			delay = bo.Next()
			s.log.WithError(err).WithField("retry_in", delay).Warn("signature poll failed")
			s.countPoll("error")
		} else {
			bo.Reset()
			delay = bo.Floor()
			s.countPoll("ok")
		}
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return leaveStopped
		case <-s.suspendSignal():
			timer.Stop()
			return leaveSuspended
		case <-timer.C:
		}
	}
}

// pollOnce processes the latest signatures oldest first so delivery order
// matches chain order.
func (s *Subscription) pollOnce() error {
	sigs, err := s.c.lister.RecentSignatures(s.ctx, s.mint, s.c.cfg.PollLimit)
	if err != nil {
		return err
	}
	for i := len(sigs) - 1; i >= 0; i-- {
		if s.ctx.Err() != nil {
			return nil
		}
		if sigs[i].Err != nil {
			continue
		}
		s.processCandidate(sigs[i].Signature)
	}
	return nil
}

// processCandidate decodes a signature exactly once per window. Decode
// failures skip the candidate; the stream keeps going.
func (s *Subscription) processCandidate(signature string) {
	if !s.window.Add(signature) {
		if s.c.metrics != nil {
			s.c.metrics.DedupeHits.Inc()
		}
		return
	}
	if swap := s.c.cache.Get(signature); swap != nil {
		s.deliver(swap)
		return
	}
	swap, err := s.c.decoder.Decode(s.ctx, signature, s.mint)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.log.WithError(err).WithField("signature", signature).Warn("decode failed, skipping")
		return
	}
	if swap == nil {
		return
	}
	s.c.cache.Put(signature, swap)
	s.deliver(swap)
}

func (s *Subscription) deliver(swap *domain.ClassifiedSwap) {
	if s.c.metrics != nil {
		s.c.metrics.EventsDelivered.WithLabelValues(string(swap.Direction)).Inc()
	}
	s.handler(swap)
}

func (s *Subscription) countPoll(result string) {
	if s.c.metrics != nil {
		s.c.metrics.PollCycles.WithLabelValues(result).Inc()
	}
}
