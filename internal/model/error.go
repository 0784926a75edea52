package model

import (
	"errors"
	"fmt"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidOrder      = "INVALID_ORDER"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure with a stable code. Validation
// errors carry one of the codes above and never leave side effects
// behind; anything else is treated as an infrastructure failure.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyOrder        = NewDomainError(ErrCodeInvalidOrder, "No order items provided")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidOrder, "Quantity must be greater than zero")
	ErrOrderNotFound     = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrUserNotFound      = NewDomainError(ErrCodeNotFound, "User not found")
	ErrNotificationGone  = NewDomainError(ErrCodeNotFound, "Notification not found")
	ErrNotOwner          = NewDomainError(ErrCodeForbidden, "Notification does not belong to this user")
	ErrNotYourOrder      = NewDomainError(ErrCodeForbidden, "Order does not belong to this user")
	ErrStaffOnly         = NewDomainError(ErrCodeForbidden, "Staff role required")
	ErrReservationLapsed = NewDomainError(ErrCodeInvalidTransition, "Reservation no longer held for this order")
	ErrInvalidPayment    = NewDomainError(ErrCodeInvalidOrder, "Unknown payment method")
)

// ErrInsufficientStock reports which product could not be reserved.
func ErrInsufficientStock(productName string) *DomainError {
	return NewDomainError(ErrCodeInsufficientStock, fmt.Sprintf("Not enough stock for %s", productName))
}

// ErrProductNotFound reports a missing catalog entry.
func ErrProductNotFound(productID string) *DomainError {
	return NewDomainError(ErrCodeNotFound, fmt.Sprintf("Product not found: %s", productID))
}

// ErrInvalidTransition reports a disallowed status change.
func ErrInvalidTransition(from, to Status) *DomainError {
	return NewDomainError(ErrCodeInvalidTransition, fmt.Sprintf("Cannot transition order from %s to %s", from, to))
}

// ErrorCode extracts the domain error code, or ErrCodeInternalError for
// infrastructure failures.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
