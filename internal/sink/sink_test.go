package sink

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vortex/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func swap(sig string) *domain.ClassifiedSwap {
	return &domain.ClassifiedSwap{Signature: sig, Direction: domain.DirectionBuy}
}

func TestPublishAndConsume(t *testing.T) {
	s := NewChannelSink(4, quietLogger())

	s.Publish(swap("a"))
	s.Publish(swap("b"))

	assert.Equal(t, "a", (<-s.Events()).Signature)
	assert.Equal(t, "b", (<-s.Events()).Signature)
}

func TestPublishNeverBlocks(t *testing.T) {
	s := NewChannelSink(2, quietLogger())

	// No consumer; publishes far past capacity must return.
	for i := 0; i < 100; i++ {
		s.Publish(swap(fmt.Sprintf("sig-%d", i)))
	}

	assert.Equal(t, uint64(98), s.Dropped())

	// The survivors are the newest two.
	assert.Equal(t, "sig-98", (<-s.Events()).Signature)
	assert.Equal(t, "sig-99", (<-s.Events()).Signature)
}

func TestCloseStopsAcceptingAndClosesChannel(t *testing.T) {
	s := NewChannelSink(4, quietLogger())
	s.Publish(swap("a"))

	s.Close()
	s.Close() // idempotent
	s.Publish(swap("late"))

	got := (<-s.Events()).Signature
	assert.Equal(t, "a", got)

	_, open := <-s.Events()
	require.False(t, open, "channel must be closed after Close")
}
