package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Producer publishes messages through a buffered inbox drained by a
// single goroutine, so callers never wait on the broker. Events are a
// side channel: a full inbox drops the message rather than stalling an
// order operation, and publishing after shutdown drops the message
// rather than panicking (a timer callback may still be finishing work
// while the drain loop closes).
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewProducer creates a producer for the given brokers. The topic is
// set per message.
func NewProducer(brokers []string, buf int, logger zerolog.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger.With().Str("component", "event-producer").Logger(),
	}
}

// Start launches the drain loop. On context cancellation the inbox is
// flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Close()
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.logger.Warn().Err(err).Str("topic", m.Topic).Msg("failed to publish event")
	}
}

// Publish enqueues a message. Messages for one key land on one
// partition, preserving per-order ordering. Never blocks; after Close
// the message is dropped.
func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug().Str("topic", topic).Msg("event dropped, producer closed")
		return
	}
	select {
	case p.inbox <- m:
	default:
		p.logger.Warn().Str("topic", topic).Msg("event dropped, inbox full")
	}
}

// Close closes the inbox so the drain loop flushes and exits. Safe to
// call more than once and concurrently with Publish.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the drain loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
