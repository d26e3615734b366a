package feeschedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Schedule is the merged, read-only view of every fee file.
// It satisfies pricing.FeeSchedule.
type Schedule struct {
	table *Table
}

// Empty returns a schedule without overrides.
func Empty() *Schedule {
	return &Schedule{table: NewTable(0)}
}

// Load reads every path concurrently and merges them in order, so a later
// file overrides an earlier one for the same business.
func Load(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (*Schedule, error) {
	logger = logger.With().Str("component", "fee-schedule").Logger()

	if len(paths) == 0 {
		logger.Info().Msg("no fee files configured, using base delivery fee only")
		return Empty(), nil
	}

	tables := make([]*Table, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			table, err := loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load fee file %s: %w", path, err)
			}
			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("failed to load fee schedule")
		return nil, err
	}

	merged := NewTable(0)
	for _, t := range tables {
		merged.Merge(t)
	}

	logger.Info().
		Int("file_count", len(paths)).
		Int("businesses", merged.Size()).
		Msg("fee schedule loaded")

	return &Schedule{table: merged}, nil
}

// DeliveryFee returns the override for a business, if any.
func (s *Schedule) DeliveryFee(businessID uuid.UUID) (decimal.Decimal, bool) {
	return s.table.Fee(businessID)
}

// Size returns the number of businesses with an override.
func (s *Schedule) Size() int {
	return s.table.Size()
}
