package service

import (
	"context"
	"time"

	"food-kart/internal/metrics"
	"food-kart/internal/model"
	"food-kart/internal/pricing"
	"food-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	pricer      *pricing.Pricer
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	pricer *pricing.Pricer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		pricer:      pricer,
		metrics:     m,
		logger:      logger.With().Str("service", "cart").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateCart returns the caller's cart at a business. Totals are
// re-evaluated against the live catalog and persisted when they drifted.
func (s *cartService) GetOrCreateCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error) {
	var resp *model.CartResponse
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.GetOrCreateForUpdate(ctx, tx, identity.UserID, businessID)
		if err != nil {
			return err
		}
		resp, err = s.reprice(ctx, tx, cart, false)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", identity.UserID.String()).
			Str("business_id", businessID.String()).
			Msg("failed to get cart")
		return nil, err
	}

	return resp, nil
}

// ListCarts returns every cart of the caller with live totals.
func (s *cartService) ListCarts(ctx context.Context, identity model.Identity) ([]model.CartResponse, error) {
	carts := []model.CartResponse{}
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		list, err := s.cartRepo.ListByUser(ctx, tx, identity.UserID)
		if err != nil {
			return err
		}
		for i := range list {
			resp, err := s.reprice(ctx, tx, &list[i], false)
			if err != nil {
				return err
			}
			carts = append(carts, *resp)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", identity.UserID.String()).Msg("failed to list carts")
		return nil, err
	}

	return carts, nil
}

// AddOrIncrementItem adds units of a product to the caller's cart at the
// product's business, summing with an existing line.
func (s *cartService) AddOrIncrementItem(ctx context.Context, identity model.Identity, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	if req == nil || req.ProductID == uuid.Nil {
		return nil, model.InvalidRequest("product_id is required")
	}
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	var resp *model.CartResponse
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		product, err := s.lockProduct(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		cart, err := s.cartRepo.GetOrCreateForUpdate(ctx, tx, identity.UserID, product.BusinessID)
		if err != nil {
			return err
		}

		item, err := s.cartRepo.FindItem(ctx, tx, cart.ID, product.ID)
		if err != nil {
			return err
		}

		inCart := 0
		if item != nil {
			inCart = item.Quantity
		}
		if req.Quantity > product.Stock-inCart {
			return &model.StockError{
				ProductID: product.ID,
				Stock:     product.Stock,
				InCart:    inCart,
				Requested: req.Quantity,
			}
		}

		now := s.now()
		if item != nil {
			err = s.cartRepo.UpdateItemQuantity(ctx, tx, item.ID, inCart+req.Quantity, now)
		} else {
			err = s.cartRepo.InsertItem(ctx, tx, &model.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  req.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err != nil {
			return err
		}

		resp, err = s.reprice(ctx, tx, cart, true)
		return err
	})
	s.metrics.CartMutation("add_item", err)
	if err != nil {
		s.logMutationError(err, "add_item", identity, req.ProductID)
		return nil, err
	}

	s.logger.Debug().
		Str("cart_id", resp.ID.String()).
		Str("product_id", req.ProductID.String()).
		Int("quantity", req.Quantity).
		Msg("item added to cart")

	return resp, nil
}

// SetItemQuantity sets the absolute quantity of an item of the caller.
func (s *cartService) SetItemQuantity(ctx context.Context, identity model.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	var resp *model.CartResponse
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		cart, item, err := s.lockItem(ctx, tx, identity, itemID)
		if err != nil {
			return err
		}

		product, err := s.lockProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return &model.StockError{
				ProductID: product.ID,
				Stock:     product.Stock,
				Requested: quantity,
			}
		}

		if err := s.cartRepo.UpdateItemQuantity(ctx, tx, item.ID, quantity, s.now()); err != nil {
			return err
		}

		resp, err = s.reprice(ctx, tx, cart, true)
		return err
	})
	s.metrics.CartMutation("set_quantity", err)
	if err != nil {
		s.logMutationError(err, "set_quantity", identity, itemID)
		return nil, err
	}

	return resp, nil
}

// RemoveItem deletes an item of the caller.
func (s *cartService) RemoveItem(ctx context.Context, identity model.Identity, itemID uuid.UUID) (*model.CartResponse, error) {
	var resp *model.CartResponse
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		cart, item, err := s.lockItem(ctx, tx, identity, itemID)
		if err != nil {
			return err
		}

		if err := s.cartRepo.DeleteItem(ctx, tx, item.ID); err != nil {
			return err
		}

		resp, err = s.reprice(ctx, tx, cart, true)
		return err
	})
	s.metrics.CartMutation("remove_item", err)
	if err != nil {
		s.logMutationError(err, "remove_item", identity, itemID)
		return nil, err
	}

	return resp, nil
}

// ClearCart deletes every item of the caller's cart at a business.
func (s *cartService) ClearCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error) {
	var resp *model.CartResponse
	err := inTx(ctx, s.cartRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.GetForUpdate(ctx, tx, identity.UserID, businessID)
		if err != nil {
			return err
		}
		if cart == nil {
			return model.ErrCartNotFound
		}

		if err := s.cartRepo.DeleteItems(ctx, tx, cart.ID); err != nil {
			return err
		}

		resp, err = s.reprice(ctx, tx, cart, true)
		return err
	})
	s.metrics.CartMutation("clear", err)
	if err != nil {
		s.logMutationError(err, "clear", identity, businessID)
		return nil, err
	}

	return resp, nil
}

// lockProduct reads a product FOR SHARE and checks it can be sold.
func (s *cartService) lockProduct(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetForShare(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	if !product.Available {
		return nil, model.ErrProductUnavailable
	}
	return product, nil
}

// lockItem locks the cart owning itemID. Items of other users are reported
// as not found.
func (s *cartService) lockItem(ctx context.Context, tx pgx.Tx, identity model.Identity, itemID uuid.UUID) (*model.Cart, *model.CartItem, error) {
	cart, err := s.cartRepo.GetByItemForUpdate(ctx, tx, identity.UserID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, model.ErrCartItemNotFound
	}

	item, err := s.cartRepo.FindItemByID(ctx, tx, cart.ID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, model.ErrCartItemNotFound
	}

	return cart, item, nil
}

// reprice recomputes the cart totals from a fresh read of its lines. After
// a mutation the row is always written; otherwise only when totals drifted.
func (s *cartService) reprice(ctx context.Context, tx pgx.Tx, cart *model.Cart, mutated bool) (*model.CartResponse, error) {
	lines, err := s.cartRepo.ListLines(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}

	totals := s.pricer.Compute(cart.BusinessID, model.PricingLines(lines))
	if mutated || !cart.Totals.Equal(totals) {
		cart.Totals = totals
		cart.UpdatedAt = s.now()
		if err := s.cartRepo.UpdateTotals(ctx, tx, cart); err != nil {
			return nil, err
		}
	}

	return model.NewCartResponse(cart, lines), nil
}

func (s *cartService) logMutationError(err error, op string, identity model.Identity, target uuid.UUID) {
	event := s.logger.Warn()
	if model.KindOf(err) == model.KindInternal {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("operation", op).
		Str("user_id", identity.UserID.String()).
		Str("target", target.String()).
		Msg("cart mutation failed")
}
