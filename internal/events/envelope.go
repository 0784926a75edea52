package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/model"
)

// Topics carry one event type each, keyed by order ID.
const (
	TopicOrderCreated       = "orders.created"
	TopicOrderPaid          = "orders.paid"
	TopicOrderStatusChanged = "orders.status-changed"
	TopicOrderCancelled     = "orders.cancelled"
)

const schemaVersion = 1

// Envelope wraps every published event with identity and provenance so
// consumers can dedupe and route without parsing the payload.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderCreatedEvent is emitted once per successful checkout.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        string              `json:"user_id"`
	Status        model.Status        `json:"status"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Total         float64             `json:"total"`
	ItemCount     int                 `json:"item_count"`
}

// OrderPaidEvent is emitted when a deferred payment settles.
type OrderPaidEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     string    `json:"user_id"`
	PaymentRef string    `json:"payment_ref"`
	Total      float64   `json:"total"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID    `json:"order_id"`
	UserID    string       `json:"user_id"`
	OldStatus model.Status `json:"old_status"`
	NewStatus model.Status `json:"new_status"`
}

// OrderCancelledEvent is emitted when an order is cancelled or its
// payment window lapses.
type OrderCancelledEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  string    `json:"user_id"`
	Reason  string    `json:"reason"`
}

func newEnvelope(eventType, producer string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: schemaVersion,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Payload:      body,
	})
}
