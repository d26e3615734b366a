package repository

import (
	"context"
	"time"

	"food-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalog reads.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves products in the order of ids, skipping missing ones.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// GetForShare reads a product inside tx with a FOR SHARE lock.
	GetForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error)

	// GetManyForShare is GetByIDs inside tx with FOR SHARE locks.
	GetManyForShare(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Product, error)
}

// CartRepository defines the interface for cart data access operations.
// Every method except BeginTx runs inside the caller's transaction.
type CartRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetOrCreateForUpdate returns the locked cart of a user at a business,
	// creating it with zero totals when it does not exist yet.
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error)

	// GetForUpdate returns the locked cart or nil.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error)

	// GetByItemForUpdate returns the locked cart owning itemID when it
	// belongs to userID, or nil.
	GetByItemForUpdate(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) (*model.Cart, error)

	// ListByUser returns every cart of a user.
	ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.Cart, error)

	// ListLines returns the items of a cart joined with the live catalog.
	ListLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error)

	// FindItem returns the line for productID in the cart, or nil.
	FindItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID) (*model.CartItem, error)

	// FindItemByID returns an item of the cart by id, or nil.
	FindItemByID(ctx context.Context, tx pgx.Tx, cartID, itemID uuid.UUID) (*model.CartItem, error)

	// InsertItem adds a new line to a cart.
	InsertItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error

	// UpdateItemQuantity sets the quantity of a line.
	UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int, now time.Time) error

	// DeleteItem removes a line.
	DeleteItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error

	// DeleteItems removes every line of a cart.
	DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error

	// UpdateTotals persists the cart totals and updated_at.
	UpdateTotals(ctx context.Context, tx pgx.Tx, cart *model.Cart) error

	// Delete removes a cart and its lines.
	Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order header within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate is GetByID inside tx with the header row locked.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// List returns orders newest first. A nil userID lists every user.
	List(ctx context.Context, filter model.OrderFilter, limit, offset int) ([]model.Order, error)

	// UpdateState persists the mutable fields of an order.
	UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error
}

// PaymentMethodRepository defines the interface for stored payment methods.
type PaymentMethodRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// ListByUser returns the payment methods of a user, main first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error)

	// GetByID returns a payment method owned by userID, or nil.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.PaymentMethod, error)

	// GetForUpdate is GetByID inside tx with the row locked.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.PaymentMethod, error)

	// CountByUser counts the payment methods of a user.
	CountByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)

	// Create inserts a payment method.
	Create(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error

	// Update persists a payment method.
	Update(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error

	// DemoteOthers clears the main flag on every other method of the user.
	DemoteOthers(ctx context.Context, tx pgx.Tx, userID, keepID uuid.UUID) error

	// Delete removes a payment method. Returns false when nothing matched.
	Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (bool, error)
}

// OutboxRepository defines the interface for the transactional outbox.
type OutboxRepository interface {
	// Insert stores an event within the provided transaction.
	Insert(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error

	// FetchPending returns unsent events, oldest first.
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)

	// MarkSent flags an event as delivered.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}
