package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-kart/internal/idempotency"
	"food-kart/internal/metrics"
	"food-kart/internal/model"
	"food-kart/internal/pricing"
	"food-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderLine is a line to freeze into an order item.
type orderLine struct {
	product  model.Product
	quantity int
}

// orderDraft carries everything needed to place an order.
type orderDraft struct {
	userID       uuid.UUID
	businessID   uuid.UUID
	driverID     *uuid.UUID
	deliveryInfo model.DeliveryInfo
	notes        *string
	deliveryTime *time.Time
	lines        []orderLine
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	outboxRepo  repository.OutboxRepository
	pricer      *pricing.Pricer
	idempotency idempotency.Store
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	outboxRepo repository.OutboxRepository,
	pricer *pricing.Pricer,
	store idempotency.Store,
	m *metrics.Metrics,
	logger zerolog.Logger,
) OrderService {
	if store == nil {
		store = idempotency.NoopStore{}
	}
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		outboxRepo:  outboxRepo,
		pricer:      pricer,
		idempotency: store,
		metrics:     m,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder freezes the requested catalog rows into a new order. Every
// product is read FOR SHARE inside the same transaction that writes the
// header and its items.
func (s *orderService) CreateOrder(ctx context.Context, identity model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	owner := identity.UserID
	if req.UserID != nil && *req.UserID != identity.UserID {
		if !identity.HasRole(model.RoleAdmin) {
			s.logger.Warn().
				Str("user_id", identity.UserID.String()).
				Str("requested_user_id", req.UserID.String()).
				Msg("order on behalf of another user rejected")
			return nil, model.ErrForbidden
		}
		owner = *req.UserID
	}

	quantities, ids, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	return s.idempotent(ctx, "order:create", identity, idempotencyKey, func() (*model.Order, error) {
		var order *model.Order
		err := inTx(ctx, s.orderRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
			products, err := s.productRepo.GetManyForShare(ctx, tx, ids)
			if err != nil {
				return err
			}
			if len(products) != len(ids) {
				return model.ErrProductNotFound
			}

			lines := make([]orderLine, len(products))
			for i, p := range products {
				if p.BusinessID != req.BusinessID {
					return model.InvalidRequest("product %s does not belong to business %s", p.ID, req.BusinessID)
				}
				lines[i] = orderLine{product: p, quantity: quantities[p.ID]}
			}

			order, err = s.placeOrder(ctx, tx, orderDraft{
				userID:       owner,
				businessID:   req.BusinessID,
				driverID:     req.DriverID,
				deliveryInfo: req.DeliveryInfo,
				notes:        req.Notes,
				deliveryTime: req.DeliveryTime,
				lines:        lines,
			})
			return err
		})
		if err != nil {
			s.logOrderError(err, "create", identity)
			return nil, err
		}

		s.metrics.OrderCreated("direct")
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Int("item_count", len(order.Items)).
			Str("total", order.Total.StringFixed(pricing.Scale)).
			Msg("order created successfully")

		return order, nil
	})
}

// Checkout turns the caller's cart into an order priced against the live
// catalog, then deletes the cart in the same transaction.
func (s *orderService) Checkout(ctx context.Context, identity model.Identity, businessID uuid.UUID, req *model.CheckoutRequest, idempotencyKey string) (*model.Order, error) {
	if req == nil {
		return nil, model.InvalidRequest("checkout request is required")
	}
	if err := validateDeliveryInfo(req.DeliveryInfo); err != nil {
		return nil, err
	}

	return s.idempotent(ctx, "order:checkout", identity, idempotencyKey, func() (*model.Order, error) {
		var order *model.Order
		err := inTx(ctx, s.orderRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
			cart, err := s.cartRepo.GetForUpdate(ctx, tx, identity.UserID, businessID)
			if err != nil {
				return err
			}
			if cart == nil {
				return model.ErrCartNotFound
			}

			cartLines, err := s.cartRepo.ListLines(ctx, tx, cart.ID)
			if err != nil {
				return err
			}
			if len(cartLines) == 0 {
				return model.ErrCartEmpty
			}

			lines := make([]orderLine, len(cartLines))
			for i, l := range cartLines {
				lines[i] = orderLine{
					product: model.Product{
						ID:         l.ProductID,
						BusinessID: cart.BusinessID,
						Name:       l.ProductName,
						Price:      l.Price,
						Discount:   l.Discount,
						Stock:      l.Stock,
						Available:  l.Available,
					},
					quantity: l.Quantity,
				}
			}

			order, err = s.placeOrder(ctx, tx, orderDraft{
				userID:       identity.UserID,
				businessID:   businessID,
				driverID:     req.DriverID,
				deliveryInfo: req.DeliveryInfo,
				notes:        req.Notes,
				deliveryTime: req.DeliveryTime,
				lines:        lines,
			})
			if err != nil {
				return err
			}

			return s.cartRepo.Delete(ctx, tx, cart.ID)
		})
		if err != nil {
			s.logOrderError(err, "checkout", identity)
			return nil, err
		}

		s.metrics.OrderCreated("checkout")
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Str("business_id", businessID.String()).
			Int("item_count", len(order.Items)).
			Msg("cart checked out")

		return order, nil
	})
}

// placeOrder checks availability and stock, freezes the lines, computes the
// totals once and writes header, items and the creation event.
func (s *orderService) placeOrder(ctx context.Context, tx pgx.Tx, d orderDraft) (*model.Order, error) {
	now := s.now()
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        d.userID,
		BusinessID:    d.businessID,
		DriverID:      d.driverID,
		DeliveryInfo:  d.deliveryInfo,
		Notes:         d.notes,
		DeliveryTime:  d.deliveryTime,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         make([]model.OrderItem, len(d.lines)),
	}

	for i, l := range d.lines {
		if !l.product.Available {
			return nil, model.ErrProductUnavailable
		}
		if l.quantity > l.product.Stock {
			return nil, &model.StockError{
				ProductID: l.product.ID,
				Stock:     l.product.Stock,
				Requested: l.quantity,
			}
		}

		productID := l.product.ID
		order.Items[i] = model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       &productID,
			ProductName:     l.product.Name,
			ProductPrice:    l.product.Price,
			ProductDiscount: l.product.Discount,
			Quantity:        l.quantity,
			TotalPrice:      pricing.LineTotal(l.quantity, l.product.Price),
		}
	}

	order.Totals = s.pricer.Compute(order.BusinessID, order.PricingLines())

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, model.EventOrderCreated, order, now); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder retrieves an order the caller owns or manages.
func (s *orderService) GetOrder(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || !identity.CanSee(order) {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// ListOrders lists orders newest first within the identity's scope.
func (s *orderService) ListOrders(ctx context.Context, identity model.Identity, filter model.OrderFilter, limit, offset int) ([]model.Order, error) {
	limit, offset = clampPage(limit, offset)

	filter, err := orderScope(identity, filter)
	if err != nil {
		s.logger.Warn().Str("user_id", identity.UserID.String()).Msg("business role without business claim")
		return nil, err
	}

	orders, err := s.orderRepo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", identity.UserID.String()).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// UpdateOrder applies an allow-listed patch. Customers may only cancel a
// pending order or edit notes and delivery time of their own orders.
func (s *orderService) UpdateOrder(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.OrderPatch) (*model.Order, error) {
	if patch.IsEmpty() {
		return nil, model.InvalidRequest("no updatable field supplied")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, model.InvalidRequest("unknown order status %q", *patch.Status)
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.Valid() {
		return nil, model.InvalidRequest("unknown payment status %q", *patch.PaymentStatus)
	}

	var order *model.Order
	err := inTx(ctx, s.orderRepo.BeginTx, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil || !identity.CanSee(order) {
			return model.ErrOrderNotFound
		}

		if !identity.Manages(order) {
			if err := checkCustomerPatch(order, patch); err != nil {
				return err
			}
		}

		prevStatus, prevPayment := order.Status, order.PaymentStatus
		now := s.now()

		changed, err := order.ApplyPatch(patch, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := s.orderRepo.UpdateState(ctx, tx, order); err != nil {
			return err
		}

		if order.Status != prevStatus || order.PaymentStatus != prevPayment {
			return s.emit(ctx, tx, model.EventOrderStatusChanged, order, now)
		}
		return nil
	})
	s.metrics.OrderUpdated(err)
	if err != nil {
		s.logOrderError(err, "update", identity)
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("order updated")

	return order, nil
}

func (s *orderService) emit(ctx context.Context, tx pgx.Tx, eventType string, order *model.Order, now time.Time) error {
	event, err := model.NewOrderEvent(eventType, order, now)
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, event)
}

// idempotent runs create once per (operation, user, key). A completed key
// replays the stored order; a key still in flight is a conflict.
func (s *orderService) idempotent(ctx context.Context, op string, identity model.Identity, key string, create func() (*model.Order, error)) (*model.Order, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return create()
	}

	scoped := op + ":" + identity.UserID.String() + ":" + key

	prior, err := s.idempotency.Reserve(ctx, scoped)
	if err != nil {
		if errors.Is(err, idempotency.ErrInProgress) {
			s.logger.Warn().Str("idempotency_key", key).Msg("duplicate request still in progress")
			return nil, fmt.Errorf("idempotency key in progress: %w", model.ErrConflict)
		}
		s.logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to reserve idempotency key")
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	if prior != "" {
		orderID, err := uuid.Parse(prior)
		if err != nil {
			return nil, fmt.Errorf("corrupt idempotency record: %w", err)
		}
		s.logger.Info().
			Str("idempotency_key", key).
			Str("order_id", prior).
			Msg("replaying idempotent order request")
		return s.GetOrder(ctx, identity, orderID)
	}

	order, err := create()
	if err != nil {
		if relErr := s.idempotency.Release(ctx, scoped); relErr != nil {
			s.logger.Error().Err(relErr).Str("idempotency_key", key).Msg("failed to release idempotency key")
		}
		return nil, err
	}

	if err := s.idempotency.Complete(ctx, scoped, order.ID.String()); err != nil {
		s.logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to record idempotency key")
	}

	return order, nil
}

func (s *orderService) logOrderError(err error, op string, identity model.Identity) {
	event := s.logger.Warn()
	if model.KindOf(err) == model.KindInternal {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("operation", op).
		Str("user_id", identity.UserID.String()).
		Msg("order operation failed")
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.InvalidRequest("order request is required")
	}

	if req.BusinessID == uuid.Nil {
		return model.InvalidRequest("business_id is required")
	}

	if len(req.Items) == 0 {
		return model.InvalidRequest("order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return model.InvalidRequest("item %d: product_id is required", i)
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID.String()).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
		if item.Quantity > model.MaxLineQuantity {
			return model.InvalidRequest("item %d: quantity %d exceeds %d", i, item.Quantity, model.MaxLineQuantity)
		}
	}

	return validateDeliveryInfo(req.DeliveryInfo)
}

func validateDeliveryInfo(d model.DeliveryInfo) error {
	switch {
	case strings.TrimSpace(d.AddressType) == "":
		return model.InvalidRequest("delivery_info.address_type is required")
	case strings.TrimSpace(d.StreetAddress) == "":
		return model.InvalidRequest("delivery_info.street_address is required")
	case strings.TrimSpace(d.Municipality) == "":
		return model.InvalidRequest("delivery_info.municipality is required")
	}
	return nil
}

// mergeItems sums quantities of repeated products, keeping first-seen order.
// A merged line may not exceed MaxLineQuantity.
func mergeItems(items []model.OrderItemRequest) (map[uuid.UUID]int, []uuid.UUID, error) {
	quantities := make(map[uuid.UUID]int, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		if it.Quantity > model.MaxLineQuantity-quantities[it.ProductID] {
			return nil, nil, model.InvalidRequest("product %s: merged quantity exceeds %d", it.ProductID, model.MaxLineQuantity)
		}
		quantities[it.ProductID] += it.Quantity
	}
	return quantities, ids, nil
}

// orderScope restricts a listing to what the identity may see. Admins keep
// the requested filter. Business staff are pinned to their business, drivers
// to their deliveries and customers to their own orders; the remaining
// fields still narrow the result.
func orderScope(identity model.Identity, requested model.OrderFilter) (model.OrderFilter, error) {
	scoped := requested
	switch {
	case identity.IsAdmin():
	case identity.HasRole(model.RoleBusiness):
		if identity.BusinessID == nil {
			return model.OrderFilter{}, model.ErrForbidden
		}
		scoped.BusinessID = identity.BusinessID
	case identity.HasRole(model.RoleDriver):
		self := identity.UserID
		scoped.DriverID = &self
	default:
		self := identity.UserID
		scoped.UserID = &self
	}
	return scoped, nil
}

// checkCustomerPatch limits customers to cancelling a pending order and
// editing notes or delivery time.
func checkCustomerPatch(order *model.Order, patch model.OrderPatch) error {
	if patch.PaymentStatus != nil && *patch.PaymentStatus != order.PaymentStatus {
		return model.ErrForbidden
	}
	if patch.Status != nil && *patch.Status != order.Status {
		if *patch.Status != model.OrderStatusCanceled || order.Status != model.OrderStatusPending {
			return model.ErrForbidden
		}
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
