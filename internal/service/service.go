package service

import (
	"context"

	"food-kart/internal/model"

	"github.com/google/uuid"
)

// ProductService defines read operations on the catalog.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products in the order of ids.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
}

// CartService defines operations on the carts of the caller. Every
// mutation returns the cart with freshly recomputed totals.
type CartService interface {
	// GetOrCreateCart returns the caller's cart at a business, creating it
	// with zero totals when absent.
	GetOrCreateCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error)

	// ListCarts returns every cart of the caller.
	ListCarts(ctx context.Context, identity model.Identity) ([]model.CartResponse, error)

	// AddOrIncrementItem adds quantity units of a product to the cart of the
	// product's business.
	AddOrIncrementItem(ctx context.Context, identity model.Identity, req *model.AddCartItemRequest) (*model.CartResponse, error)

	// SetItemQuantity sets the absolute quantity of a cart item.
	SetItemQuantity(ctx context.Context, identity model.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error)

	// RemoveItem deletes a cart item.
	RemoveItem(ctx context.Context, identity model.Identity, itemID uuid.UUID) (*model.CartResponse, error)

	// ClearCart deletes every item of a cart and zeroes its totals.
	ClearCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder prices and stores a new order. A non-empty idempotency key
	// makes retries return the first order.
	CreateOrder(ctx context.Context, identity model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error)

	// Checkout turns the caller's cart at a business into an order and
	// deletes the cart.
	Checkout(ctx context.Context, identity model.Identity, businessID uuid.UUID, req *model.CheckoutRequest, idempotencyKey string) (*model.Order, error)

	// GetOrder retrieves an order with its items.
	GetOrder(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.Order, error)

	// ListOrders lists orders newest first. Admins filter freely; business
	// staff, drivers and customers are pinned to their business, their
	// deliveries and their own orders respectively.
	ListOrders(ctx context.Context, identity model.Identity, filter model.OrderFilter, limit, offset int) ([]model.Order, error)

	// UpdateOrder applies a status, payment, notes or delivery time patch.
	UpdateOrder(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.OrderPatch) (*model.Order, error)
}

// PaymentMethodService defines operations on the caller's payment methods.
type PaymentMethodService interface {
	List(ctx context.Context, identity model.Identity) ([]model.PaymentMethod, error)
	Get(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.PaymentMethod, error)
	Create(ctx context.Context, identity model.Identity, req *model.PaymentMethodRequest) (*model.PaymentMethod, error)
	Update(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.PaymentMethodPatch) (*model.PaymentMethod, error)
	Delete(ctx context.Context, identity model.Identity, id uuid.UUID) error
}
