package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"solana-vortex/internal/domain"
	"solana-vortex/internal/security"
)

// ChartSubscription streams one flat OHLC tick per second for a token. Ticks
// land on discrete second boundaries; a second never produces two ticks.
type ChartSubscription struct {
	mint    string
	handler TickHandler
	c       *Coordinator
	log     *logrus.Entry

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	limiter *rate.Limiter

	mu        sync.Mutex
	suspended bool
	resumeCh  chan struct{}
	stopOnce  sync.Once
}

// SubscribeChart starts a tick stream for mint. Requires a price quoter.
func (c *Coordinator) SubscribeChart(ctx context.Context, mint string, handler TickHandler) (*ChartSubscription, error) {
	if c.quoter == nil {
		return nil, fmt.Errorf("chart subscribe %s: no price quoter configured", mint)
	}
	if err := security.ValidateAddress(mint); err != nil {
		return nil, fmt.Errorf("chart subscribe %s: %w", mint, err)
	}
	if handler == nil {
		return nil, fmt.Errorf("chart subscribe %s: nil handler", mint)
	}
	subCtx, cancel := context.WithCancel(ctx)
	s := &ChartSubscription{
		mint:     mint,
		handler:  handler,
		c:        c,
		log:      c.log.WithField("chart", domain.ShortWallet(mint)),
		ctx:      subCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Every(c.cfg.TickInterval), 1),
		resumeCh: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Stop halts the stream and waits for the loop to exit.
func (s *ChartSubscription) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Suspend pauses tick polling. Idempotent.
func (s *ChartSubscription) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.suspended = true
	s.resumeCh = make(chan struct{})
}

// Resume restarts tick polling. Idempotent.
func (s *ChartSubscription) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.suspended {
		return
	}
	s.suspended = false
	close(s.resumeCh)
}

func (s *ChartSubscription) waitResumed() bool {
	s.mu.Lock()
	suspended := s.suspended
	ch := s.resumeCh
	s.mu.Unlock()
	if !suspended {
		return true
	}
	select {
	case <-s.ctx.Done():
		return false
	case <-ch:
		return true
	}
}

func (s *ChartSubscription) run() {
	defer close(s.done)
	bo := newBackoff(s.c.cfg.TickInterval, s.c.cfg.TickFailureCeil)
	var lastTick int64
	for {
		if s.ctx.Err() != nil {
			return
		}
		if !s.waitResumed() {
			return
		}
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
		now := s.c.now().Unix()
		if now == lastTick {
			continue
		}
		price, err := s.c.quoter.TokenPrice(s.ctx, s.mint)
		if err != nil || price <= 0 {
			delay := bo.Next()
			if err != nil {
				s.log.WithError(err).WithField("retry_in", delay).Debug("price fetch failed")
			}
			if !s.sleep(delay) {
				return
			}
			continue
		}
		bo.Reset()
		lastTick = now
		if s.c.metrics != nil {
			s.c.metrics.TicksDelivered.Inc()
		}
		s.handler(domain.FlatTick(now, price))
	}
}

func (s *ChartSubscription) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
