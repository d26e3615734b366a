package model

import (
	"time"

	"food-kart/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryInfo is where an order is delivered.
type DeliveryInfo struct {
	AddressType   string  `json:"address_type" db:"delivery_address_type"`
	StreetAddress string  `json:"street_address" db:"delivery_street_address"`
	Latitude      *string `json:"latitude,omitempty" db:"delivery_latitude"`
	Longitude     *string `json:"longitude,omitempty" db:"delivery_longitude"`
	Municipality  string  `json:"municipality" db:"delivery_municipality"`
}

// Order is a frozen snapshot taken at checkout.
type Order struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	BusinessID uuid.UUID  `json:"business_id" db:"business_id"`
	DriverID   *uuid.UUID `json:"driver_id,omitempty" db:"driver_id"`
	pricing.Totals
	DeliveryInfo  `json:"delivery_info"`
	Notes         *string       `json:"notes,omitempty" db:"notes"`
	DeliveryTime  *time.Time    `json:"delivery_time,omitempty" db:"delivery_time"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CanceledAt    *time.Time    `json:"canceled_at,omitempty" db:"canceled_at"`
	Items         []OrderItem   `json:"order_items"`
}

// OrderItem is a frozen copy of a line at the time of ordering.
// ProductID becomes nil when the product is deleted from the catalog.
type OrderItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"-" db:"order_id"`
	ProductID       *uuid.UUID      `json:"product_id" db:"product_id"`
	ProductName     string          `json:"product_name" db:"product_name"`
	ProductPrice    decimal.Decimal `json:"product_price" db:"product_price"`
	ProductDiscount decimal.Decimal `json:"product_discount" db:"product_discount"`
	Quantity        int             `json:"quantity" db:"quantity"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
}

// PricingLines converts frozen order items for the pricing engine.
func (o *Order) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(o.Items))
	for i, it := range o.Items {
		out[i] = pricing.Line{
			Quantity:     it.Quantity,
			UnitPrice:    it.ProductPrice,
			UnitDiscount: it.ProductDiscount,
		}
	}
	return out
}

// OrderFilter narrows an order listing. Nil fields match everything.
type OrderFilter struct {
	UserID     *uuid.UUID
	BusinessID *uuid.UUID
	DriverID   *uuid.UUID
}

// OrderRequest is the payload of POST /api/orders.
type OrderRequest struct {
	UserID       *uuid.UUID         `json:"user_id,omitempty"`
	BusinessID   uuid.UUID          `json:"business_id"`
	DriverID     *uuid.UUID         `json:"driver_id,omitempty"`
	Items        []OrderItemRequest `json:"items"`
	DeliveryInfo DeliveryInfo       `json:"delivery_info"`
	Notes        *string            `json:"notes,omitempty"`
	DeliveryTime *time.Time         `json:"delivery_time,omitempty"`
}

// OrderItemRequest is a single line of an order request.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CheckoutRequest is the payload of POST /api/carts/{business_id}/checkout.
type CheckoutRequest struct {
	DriverID     *uuid.UUID   `json:"driver_id,omitempty"`
	DeliveryInfo DeliveryInfo `json:"delivery_info"`
	Notes        *string      `json:"notes,omitempty"`
	DeliveryTime *time.Time   `json:"delivery_time,omitempty"`
}

// OrderPatch lists the only fields of an order that may change after
// creation. Unset fields are left untouched.
type OrderPatch struct {
	Status        *OrderStatus   `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	DeliveryTime  *time.Time     `json:"delivery_time,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.PaymentStatus == nil && p.DeliveryTime == nil && p.Notes == nil
}
