package model

import (
	"time"

	"food-kart/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the open basket of one user at one business.
type Cart struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	BusinessID uuid.UUID `json:"business_id" db:"business_id"`
	pricing.Totals
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem is a line in a cart. It never caches the product price.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with the live catalog row.
type CartLine struct {
	CartItem
	ProductName string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Stock       int
	Available   bool
}

// PricingLine converts the line for the pricing engine.
func (l CartLine) PricingLine() pricing.Line {
	return pricing.Line{
		Quantity:     l.Quantity,
		UnitPrice:    l.Price,
		UnitDiscount: l.Discount,
	}
}

// PricingLines converts cart lines for the pricing engine.
func PricingLines(lines []CartLine) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = l.PricingLine()
	}
	return out
}

// MaxLineQuantity bounds the quantity of one order line.
const MaxLineQuantity = 1000

// AddCartItemRequest is the payload of POST /api/cart/items.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// UpdateCartItemRequest is the payload of PUT /api/cart/items/{id}.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartItemResponse is a priced line in a cart snapshot.
type CartItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CartResponse is a full cart snapshot with recomputed totals.
type CartResponse struct {
	Cart
	Items []CartItemResponse `json:"items"`
}

// NewCartResponse builds a snapshot from a cart and its lines.
func NewCartResponse(cart *Cart, lines []CartLine) *CartResponse {
	items := make([]CartItemResponse, len(lines))
	for i, l := range lines {
		items[i] = CartItemResponse{
			ID:           l.ID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			UnitPrice:    l.Price,
			UnitDiscount: l.Discount,
			Quantity:     l.Quantity,
			LineTotal:    pricing.LineTotal(l.Quantity, l.Price),
			Available:    l.Available,
			CreatedAt:    l.CreatedAt,
			UpdatedAt:    l.UpdatedAt,
		}
	}
	return &CartResponse{Cart: *cart, Items: items}
}
