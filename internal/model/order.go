package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the fixed set of accepted payment methods.
type PaymentMethod string

const (
	// PaymentCard settles asynchronously; the order waits in pending
	// with its stock held until the gateway confirms.
	PaymentCard PaymentMethod = "card"
	// PaymentCashOnDelivery needs no confirmation; the order goes
	// straight to processing.
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCashOnDelivery
}

// Deferred reports whether payment settles after checkout.
func (m PaymentMethod) Deferred() bool {
	return m == PaymentCard
}

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to
// another. Delivered and cancelled are terminal.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Address is the shipping destination captured at checkout.
type Address struct {
	FullName   string `json:"fullName"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// OrderItem is one ordered line. Price is the unit price snapshotted at
// order time; later catalog changes never touch it.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	Color     string    `json:"color,omitempty" db:"color"`
	Size      string    `json:"size,omitempty" db:"size"`
}

// Order represents a purchase attempt and its lifecycle state.
type Order struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	UserID          string        `json:"userId" db:"user_id"`
	Items           []OrderItem   `json:"items"`
	ShippingAddress Address       `json:"shippingAddress" db:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Subtotal        float64       `json:"subtotal" db:"subtotal"`
	ShippingPrice   float64       `json:"shippingPrice" db:"shipping_price"`
	TaxPrice        float64       `json:"taxPrice" db:"tax_price"`
	Total           float64       `json:"total" db:"total"`
	Status          Status        `json:"status" db:"status"`
	IsPaid          bool          `json:"isPaid" db:"is_paid"`
	PaidAt          *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	PaymentRef      string        `json:"paymentRef,omitempty" db:"payment_ref"`
	IsDelivered     bool          `json:"isDelivered" db:"is_delivered"`
	DeliveredAt     *time.Time    `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedBy       string        `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// RecomputeTotals rederives subtotal and total from the line items.
// Called whenever items change so total == subtotal + shipping + tax
// holds at all times.
func (o *Order) RecomputeTotals() {
	var subtotal float64
	for _, item := range o.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.ShippingPrice + o.TaxPrice
}

// CheckoutItem is a single requested line in a checkout.
type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}

// CheckoutRequest is the payload for creating an order.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items"`
	ShippingAddress Address        `json:"shippingAddress"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod"`
	ShippingPrice   float64        `json:"shippingPrice"`
	TaxPrice        float64        `json:"taxPrice"`
}

// OrderPage is a paginated slice of a user's orders.
type OrderPage struct {
	Orders       []Order        `json:"orders"`
	Total        int            `json:"total"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	StatusCounts map[Status]int `json:"statusCounts"`
}
