// Package sink decouples event producers from consumers. Publishing never
// blocks the feed: a slow consumer loses the oldest buffered events, not the
// stream.
package sink

import (
	"sync"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/domain"
)

// EventSink receives classified swaps. Publish must not block.
type EventSink interface {
	Publish(swap *domain.ClassifiedSwap)
}

// ChannelSink buffers events on a bounded channel, dropping the oldest entry
// when the buffer is full. Consumers read from Events.
type ChannelSink struct {
	ch      chan *domain.ClassifiedSwap
	log     *logrus.Entry
	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// NewChannelSink creates a sink with the given buffer capacity.
func NewChannelSink(capacity int, logger *logrus.Logger) *ChannelSink {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ChannelSink{
		ch:  make(chan *domain.ClassifiedSwap, capacity),
		log: logger.WithField("component", "sink"),
	}
}

// Publish enqueues swap without blocking. When the buffer is full the oldest
// buffered event is discarded to make room.
func (s *ChannelSink) Publish(swap *domain.ClassifiedSwap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- swap:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
			if s.dropped%100 == 1 {
				s.log.WithField("dropped_total", s.dropped).Warn("sink buffer full, dropping oldest")
			}
		default:
		}
	}
}

// Events returns the consumer side of the buffer.
func (s *ChannelSink) Events() <-chan *domain.ClassifiedSwap {
	return s.ch
}

// Dropped reports how many events were discarded because of backpressure.
func (s *ChannelSink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting events and closes the consumer channel.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
