package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Available     *int   `json:"available,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeProductUnavail    = "PRODUCT_UNAVAILABLE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCartNotFound      = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound  = "CART_ITEM_NOT_FOUND"
	ErrCodeCartEmpty         = "CART_EMPTY"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeFrozenField       = "FROZEN_FIELD"
	ErrCodePaymentNotFound   = "PAYMENT_METHOD_NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ErrorKind classifies domain errors for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidRequest
	KindInsufficientStock
	KindUnauthorised
	KindForbidden
	KindConflict
)

// Domain errors for business logic
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// InvalidRequest creates an InvalidRequest error with a formatted message.
func InvalidRequest(format string, args ...any) *DomainError {
	return NewDomainError(KindInvalidRequest, ErrCodeInvalidRequest, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrInvalidQuantity    = NewDomainError(KindInvalidRequest, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrProductNotFound    = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrProductUnavailable = NewDomainError(KindInvalidRequest, ErrCodeProductUnavail, "Product is not available")
	ErrCartNotFound       = NewDomainError(KindNotFound, ErrCodeCartNotFound, "Cart not found")
	ErrCartItemNotFound   = NewDomainError(KindNotFound, ErrCodeCartItemNotFound, "Cart item not found")
	ErrCartEmpty          = NewDomainError(KindInvalidRequest, ErrCodeCartEmpty, "Cart has no items")
	ErrOrderNotFound      = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrPaymentNotFound    = NewDomainError(KindNotFound, ErrCodePaymentNotFound, "Payment method not found")
	ErrConflict           = NewDomainError(KindConflict, ErrCodeConflict, "Concurrent update detected, please retry")
	ErrUnauthorised       = NewDomainError(KindUnauthorised, ErrCodeUnauthorised, "Authentication required")
	ErrForbidden          = NewDomainError(KindForbidden, ErrCodeForbidden, "Not allowed to perform this operation")
)

// StockError reports that a requested quantity exceeds the product stock.
type StockError struct {
	ProductID uuid.UUID
	Stock     int
	InCart    int
	Requested int
}

// Available is how many more units the caller may add.
func (e *StockError) Available() int {
	if n := e.Stock - e.InCart; n > 0 {
		return n
	}
	return 0
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d units left in stock, %d available to add", e.Stock, e.Available())
}

// KindOf returns the kind of a domain error, or KindInternal.
func KindOf(err error) ErrorKind {
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return KindInsufficientStock
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}
