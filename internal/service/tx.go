package service

import (
	"context"
	"fmt"

	"food-kart/internal/model"
	"food-kart/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// inTx runs fn inside one transaction. Any error from fn rolls the whole
// transaction back; a lost race at commit is reported as model.ErrConflict.
func inTx(ctx context.Context, begin func(context.Context) (pgx.Tx, error), logger zerolog.Logger, fn func(tx pgx.Tx) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		if repository.IsConcurrencyError(err) {
			return fmt.Errorf("failed to commit transaction: %w", model.ErrConflict)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
