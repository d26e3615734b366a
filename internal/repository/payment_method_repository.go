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

const (
	paymentMethodColumns = `id, user_id, name_on_card, card_last4, expiry, alias, provider, is_main`

	mainPaymentMethodIndex = "uq_payment_methods_main"
)

type paymentMethodRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentMethodRepository creates a new PostgreSQL-backed payment method repository.
func NewPaymentMethodRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentMethodRepository {
	return &paymentMethodRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment_method").Logger(),
	}
}

func scanPaymentMethod(row pgx.Row) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	err := row.Scan(&pm.ID, &pm.UserID, &pm.NameOnCard, &pm.CardLast4, &pm.Expiry, &pm.Alias, &pm.Provider, &pm.IsMain)
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// conflictOnMain turns a race on the single-main index into ErrConflict.
func conflictOnMain(err error, msg string) error {
	if IsUniqueViolation(err, mainPaymentMethodIndex) {
		return fmt.Errorf("%s: %w", msg, model.ErrConflict)
	}
	return wrapError(err, msg)
}

func (r *paymentMethodRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func (r *paymentMethodRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_main DESC, name_on_card, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query payment methods")
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	methods := []model.PaymentMethod{}
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, *pm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}

func (r *paymentMethodRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.PaymentMethod, error) {
	return r.get(ctx, r.pool, userID, id, false)
}

func (r *paymentMethodRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.PaymentMethod, error) {
	return r.get(ctx, tx, userID, id, true)
}

func (r *paymentMethodRepository) get(ctx context.Context, q querier, userID, id uuid.UUID, lock bool) (*model.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1 AND user_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	pm, err := scanPaymentMethod(q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to query payment method")
		return nil, wrapError(err, "failed to query payment method")
	}

	return pm, nil
}

func (r *paymentMethodRepository) CountByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM payment_methods WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to count payment methods")
		return 0, wrapError(err, "failed to count payment methods")
	}
	return n, nil
}

func (r *paymentMethodRepository) Create(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error {
	query := `INSERT INTO payment_methods (` + paymentMethodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query, pm.ID, pm.UserID, pm.NameOnCard, pm.CardLast4, pm.Expiry, pm.Alias, pm.Provider, pm.IsMain)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", pm.UserID.String()).Msg("failed to create payment method")
		return conflictOnMain(err, "failed to create payment method")
	}

	return nil
}

func (r *paymentMethodRepository) Update(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error {
	query := `
		UPDATE payment_methods
		SET name_on_card = $3, expiry = $4, alias = $5, provider = $6, is_main = $7
		WHERE id = $1 AND user_id = $2
	`

	_, err := tx.Exec(ctx, query, pm.ID, pm.UserID, pm.NameOnCard, pm.Expiry, pm.Alias, pm.Provider, pm.IsMain)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_method_id", pm.ID.String()).Msg("failed to update payment method")
		return conflictOnMain(err, "failed to update payment method")
	}

	return nil
}

func (r *paymentMethodRepository) DemoteOthers(ctx context.Context, tx pgx.Tx, userID, keepID uuid.UUID) error {
	query := `UPDATE payment_methods SET is_main = FALSE WHERE user_id = $1 AND id <> $2 AND is_main`

	_, err := tx.Exec(ctx, query, userID, keepID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to demote payment methods")
		return wrapError(err, "failed to demote payment methods")
	}

	return nil
}

func (r *paymentMethodRepository) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to delete payment method")
		return false, wrapError(err, "failed to delete payment method")
	}
	return tag.RowsAffected() == 1, nil
}
