package service

import (
	"context"
	"fmt"

	"food-kart/internal/model"
	"food-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBatchIDs caps a single GetByIDs lookup.
const maxBatchIDs = 100

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = clampPage(limit, offset)

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("catalog page read failed")
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return products, nil
}

// GetByID returns ErrProductNotFound for the nil id without touching the store.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if id == uuid.Nil {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	switch {
	case err != nil:
		s.logger.Error().Err(err).Stringer("product_id", id).Msg("catalog read failed")
		return nil, fmt.Errorf("failed to read product %s: %w", id, err)
	case product == nil:
		return nil, model.ErrProductNotFound
	}
	return product, nil
}

// GetByIDs keeps the first occurrence of each id and the caller's order.
// Unknown ids are skipped.
func (s *productService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) == 0 {
		return []model.Product{}, nil
	}
	if len(unique) > maxBatchIDs {
		return nil, model.InvalidRequest("at most %d product ids per lookup, got %d", maxBatchIDs, len(unique))
	}

	products, err := s.productRepo.GetByIDs(ctx, unique)
	if err != nil {
		s.logger.Error().Err(err).Int("requested", len(unique)).Msg("catalog batch read failed")
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	s.logger.Debug().Int("requested", len(unique)).Int("found", len(products)).Msg("catalog batch read")
	return products, nil
}
