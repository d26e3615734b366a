package repository

import (
	"context"
	"errors"
	"fmt"

	"food-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, user_id, business_id, driver_id,
	subtotal, discount_total, taxes, delivery_fee, total,
	delivery_address_type, delivery_street_address, delivery_latitude, delivery_longitude, delivery_municipality,
	notes, delivery_time, status, payment_status, created_at, updated_at, completed_at, canceled_at`

// querier is the read surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.BusinessID,
		&o.DriverID,
		&o.Subtotal,
		&o.DiscountTotal,
		&o.Taxes,
		&o.DeliveryFee,
		&o.Total,
		&o.DeliveryInfo.AddressType,
		&o.DeliveryInfo.StreetAddress,
		&o.DeliveryInfo.Latitude,
		&o.DeliveryInfo.Longitude,
		&o.DeliveryInfo.Municipality,
		&o.Notes,
		&o.DeliveryTime,
		&o.Status,
		&o.PaymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CompletedAt,
		&o.CanceledAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// CreateOrder inserts a new order header within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.BusinessID,
		order.DriverID,
		order.Subtotal,
		order.DiscountTotal,
		order.Taxes,
		order.DeliveryFee,
		order.Total,
		order.DeliveryInfo.AddressType,
		order.DeliveryInfo.StreetAddress,
		order.DeliveryInfo.Latitude,
		order.DeliveryInfo.Longitude,
		order.DeliveryInfo.Municipality,
		order.Notes,
		order.DeliveryTime,
		order.Status,
		order.PaymentStatus,
		order.CreatedAt,
		order.UpdatedAt,
		order.CompletedAt,
		order.CanceledAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return wrapError(err, "failed to create order")
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_price, product_discount, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.ProductPrice,
			item.ProductDiscount,
			item.Quantity,
			item.TotalPrice,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_name", items[i].ProductName).
				Msg("failed to create order item")
			return wrapError(err, "failed to create order item")
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate is GetByID inside tx with the header row locked.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, tx, id, true)
}

func (r *orderRepository) get(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, wrapError(err, "failed to query order")
	}

	orders := []model.Order{*order}
	if err := r.attachItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// List returns orders newest first. Nil filter fields match every row.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::uuid IS NULL OR business_id = $2)
		  AND ($3::uuid IS NULL OR driver_id = $3)
		ORDER BY created_at DESC, id
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.BusinessID, filter.DriverID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the items of every order with one query.
func (r *orderRepository) attachItems(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	query := `
		SELECT id, order_id, product_id, product_name, product_price, product_discount, quantity, total_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_name, id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int("orders", len(ids)).
			Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductPrice,
			&item.ProductDiscount,
			&item.Quantity,
			&item.TotalPrice,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// UpdateState persists the mutable fields of an order. Financial fields and
// items are never written after creation.
func (r *orderRepository) UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, delivery_time = $4, notes = $5,
			updated_at = $6, completed_at = $7, canceled_at = $8
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.PaymentStatus,
		order.DeliveryTime,
		order.Notes,
		order.UpdatedAt,
		order.CompletedAt,
		order.CanceledAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return wrapError(err, "failed to update order")
	}

	return nil
}
