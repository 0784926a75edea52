package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestProducer_PublishAfterShutdownIsDropped(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()

	// A timer callback can still be mid-flight when shutdown closes the
	// inbox; its publish must be dropped, not crash the process.
	require.NotPanics(t, func() {
		p.Publish(TopicOrderCreated, []byte("order-1"), []byte(`{}`))
	})
}

func TestProducer_CloseIsIdempotent(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4, zerolog.Nop())
	p.Start(context.Background())

	require.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
	p.WaitClosed()
}

func TestStream_NilProducerIsNoOp(t *testing.T) {
	s := NewStream(nil, "shopcore", zerolog.Nop())

	require.NotPanics(t, func() {
		s.OrderCancelled(uuid.New(), "user-1", "payment window elapsed")
	})
}
