package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"shopcore/internal/model"
)

// Stream is the typed face of the producer. A Stream with a nil
// producer is a no-op, so callers stay unconditional when the broker
// is disabled.
type Stream struct {
	p       *Producer
	service string
	logger  zerolog.Logger
}

// NewStream wraps a producer. p may be nil.
func NewStream(p *Producer, service string, logger zerolog.Logger) *Stream {
	return &Stream{
		p:       p,
		service: service,
		logger:  logger.With().Str("component", "event-stream").Logger(),
	}
}

// OrderCreated publishes the checkout event.
func (s *Stream) OrderCreated(o *model.Order) {
	s.publish(TopicOrderCreated, o.ID, OrderCreatedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Total:         o.Total,
		ItemCount:     len(o.Items),
	})
}

// OrderPaid publishes the payment settlement event.
func (s *Stream) OrderPaid(o *model.Order) {
	s.publish(TopicOrderPaid, o.ID, OrderPaidEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		PaymentRef: o.PaymentRef,
		Total:      o.Total,
	})
}

// OrderStatusChanged publishes a lifecycle transition.
func (s *Stream) OrderStatusChanged(o *model.Order, old model.Status) {
	s.publish(TopicOrderStatusChanged, o.ID, OrderStatusChangedEvent{
		OrderID:   o.ID,
		UserID:    o.UserID,
		OldStatus: old,
		NewStatus: o.Status,
	})
}

// OrderCancelled publishes a cancellation, whether by staff or by the
// payment window lapsing.
func (s *Stream) OrderCancelled(orderID uuid.UUID, userID, reason string) {
	s.publish(TopicOrderCancelled, orderID, OrderCancelledEvent{
		OrderID: orderID,
		UserID:  userID,
		Reason:  reason,
	})
}

func (s *Stream) publish(topic string, orderID uuid.UUID, payload any) {
	if s.p == nil {
		return
	}
	body, err := newEnvelope(topic, s.service, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}
	s.p.Publish(topic, []byte(orderID.String()), body, kafka.Header{
		Key:   "content-type",
		Value: []byte("application/json"),
	})
}
