package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const cartColumns = `id, user_id, business_id, subtotal, discount_total, taxes, delivery_fee, total, created_at, updated_at`

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	var c model.Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.BusinessID,
		&c.Subtotal,
		&c.DiscountTotal,
		&c.Taxes,
		&c.DeliveryFee,
		&c.Total,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCartItem(row pgx.Row) (*model.CartItem, error) {
	var it model.CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// GetOrCreateForUpdate inserts the cart if missing and then locks it. The
// unique (user_id, business_id) constraint makes concurrent creators
// converge on one row.
func (r *cartRepository) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error) {
	insert := `
		INSERT INTO carts (id, user_id, business_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, business_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insert, uuid.New(), userID, businessID, time.Now().UTC())
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("business_id", businessID.String()).
			Msg("failed to create cart")
		return nil, wrapError(err, "failed to create cart")
	}
	if tag.RowsAffected() == 1 {
		r.logger.Debug().
			Str("user_id", userID.String()).
			Str("business_id", businessID.String()).
			Msg("cart created")
	}

	cart, err := r.GetForUpdate(ctx, tx, userID, businessID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart vanished after upsert: %w", model.ErrConflict)
	}
	return cart, nil
}

// GetForUpdate returns the locked cart or nil.
func (r *cartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error) {
	query := `SELECT ` + cartColumns + `
		FROM carts
		WHERE user_id = $1 AND business_id = $2
		FOR UPDATE
	`

	cart, err := scanCart(tx.QueryRow(ctx, query, userID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to lock cart")
		return nil, wrapError(err, "failed to lock cart")
	}

	return cart, nil
}

// GetByItemForUpdate returns the locked cart owning itemID when it belongs
// to userID, or nil.
func (r *cartRepository) GetByItemForUpdate(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) (*model.Cart, error) {
	query := `
		SELECT c.id, c.user_id, c.business_id, c.subtotal, c.discount_total, c.taxes,
			c.delivery_fee, c.total, c.created_at, c.updated_at
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		WHERE ci.id = $1 AND c.user_id = $2
		FOR UPDATE OF c
	`

	cart, err := scanCart(tx.QueryRow(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to lock cart by item")
		return nil, wrapError(err, "failed to lock cart by item")
	}

	return cart, nil
}

// ListByUser returns every cart of a user.
func (r *cartRepository) ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.Cart, error) {
	query := `SELECT ` + cartColumns + `
		FROM carts
		WHERE user_id = $1
		ORDER BY updated_at DESC, id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query carts")
		return nil, wrapError(err, "failed to query carts")
	}
	defer rows.Close()

	var carts []model.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}
		carts = append(carts, *c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart rows")
		return nil, wrapError(err, "error iterating carts")
	}

	return carts, nil
}

// ListLines returns the items of a cart joined with the live catalog.
// Product rows are read FOR SHARE so stock and prices hold until commit.
func (r *cartRepository) ListLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			p.name, p.price, p.discount, p.stock, p.available
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
		FOR SHARE OF p
	`

	rows, err := tx.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart lines")
		return nil, wrapError(err, "failed to query cart lines")
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		err := rows.Scan(
			&l.ID,
			&l.CartID,
			&l.ProductID,
			&l.Quantity,
			&l.CreatedAt,
			&l.UpdatedAt,
			&l.ProductName,
			&l.Price,
			&l.Discount,
			&l.Stock,
			&l.Available,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart line rows")
		return nil, wrapError(err, "error iterating cart lines")
	}

	return lines, nil
}

// FindItem returns the line for productID in the cart, or nil.
func (r *cartRepository) FindItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID) (*model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`

	item, err := scanCartItem(tx.QueryRow(ctx, query, cartID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart item")
		return nil, wrapError(err, "failed to query cart item")
	}

	return item, nil
}

// FindItemByID returns an item of the cart by id, or nil.
func (r *cartRepository) FindItemByID(ctx context.Context, tx pgx.Tx, cartID, itemID uuid.UUID) (*model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND id = $2
	`

	item, err := scanCartItem(tx.QueryRow(ctx, query, cartID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to query cart item")
		return nil, wrapError(err, "failed to query cart item")
	}

	return item, nil
}

// InsertItem adds a new line to a cart.
func (r *cartRepository) InsertItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", item.CartID.String()).
			Str("product_id", item.ProductID.String()).
			Msg("failed to insert cart item")
		if IsUniqueViolation(err, "uq_cart_items_cart_product") {
			return fmt.Errorf("failed to insert cart item: %w", model.ErrConflict)
		}
		return wrapError(err, "failed to insert cart item")
	}

	return nil
}

// UpdateItemQuantity sets the quantity of a line.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int, now time.Time) error {
	query := `UPDATE cart_items SET quantity = $2, updated_at = $3 WHERE id = $1`

	_, err := tx.Exec(ctx, query, itemID, quantity, now)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to update cart item")
		return wrapError(err, "failed to update cart item")
	}

	return nil
}

// DeleteItem removes a line.
func (r *cartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to delete cart item")
		return wrapError(err, "failed to delete cart item")
	}
	return nil
}

// DeleteItems removes every line of a cart.
func (r *cartRepository) DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart items")
		return wrapError(err, "failed to clear cart items")
	}

	r.logger.Debug().
		Str("cart_id", cartID.String()).
		Int64("deleted", tag.RowsAffected()).
		Msg("cart items cleared")

	return nil
}

// UpdateTotals persists the cart totals and updated_at.
func (r *cartRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	query := `
		UPDATE carts
		SET subtotal = $2, discount_total = $3, taxes = $4, delivery_fee = $5, total = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		cart.ID,
		cart.Subtotal,
		cart.DiscountTotal,
		cart.Taxes,
		cart.DeliveryFee,
		cart.Total,
		cart.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to update cart totals")
		return wrapError(err, "failed to update cart totals")
	}

	return nil
}

// Delete removes a cart and, by cascade, its lines.
func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return wrapError(err, "failed to delete cart")
	}
	return nil
}
