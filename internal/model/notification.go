package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationNewOrder        NotificationType = "NEW_ORDER"
	NotificationNewOrderPayment NotificationType = "NEW_ORDER_PAYMENT"
	NotificationStatusUpdate    NotificationType = "ORDER_STATUS_UPDATE"
	NotificationOrderCancelled  NotificationType = "ORDER_CANCELLED"
	NotificationInventoryAlert  NotificationType = "INVENTORY_ALERT"
	NotificationNewProduct      NotificationType = "NEW_PRODUCT_CREATED"
	NotificationUserLogin       NotificationType = "USER_LOGIN"
)

// Notification is an append-only record of something a recipient should
// hear about. Targeting is any combination of a specific user, a set of
// roles, and the global flag; read state is tracked per reader.
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	RelatedID string           `json:"relatedId,omitempty" db:"related_id"`
	UserID    string           `json:"userId,omitempty" db:"user_id"`
	Roles     []string         `json:"roles,omitempty" db:"roles"`
	IsGlobal  bool             `json:"isGlobal" db:"is_global"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// Targeted reports whether the notification addresses anyone at all.
func (n *Notification) Targeted() bool {
	return n.UserID != "" || len(n.Roles) > 0 || n.IsGlobal
}

// PushMessage is the structured payload sent over the live channel.
type PushMessage struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message"`
	RelatedID string           `json:"relatedId,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Push builds the live payload for a persisted notification.
func (n *Notification) Push() PushMessage {
	return PushMessage{
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		RelatedID: n.RelatedID,
		CreatedAt: n.CreatedAt,
	}
}

// NotificationFeed is a recipient's notification list plus unread count.
type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}
