package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"food-kart/internal/metrics"
	"food-kart/internal/model"
	"food-kart/internal/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCartService(cartRepo *MockCartRepository, productRepo *MockProductRepository, m *metrics.Metrics) *cartService {
	svc := NewCartService(cartRepo, productRepo, testPricer(), m, zerolog.Nop()).(*cartService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCartService_AddOrIncrementItem_EmptyCart(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)
	tx := committingTx()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	svc := newTestCartService(cartRepo, productRepo, m)

	product := burger()
	cart := emptyCart()

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
	cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
	cartRepo.On("FindItem", ctx, tx, cart.ID, product.ID).Return(nil, nil)
	cartRepo.On("InsertItem", ctx, tx, mock.MatchedBy(func(item *model.CartItem) bool {
		return item.CartID == cart.ID && item.ProductID == product.ID && item.Quantity == 2
	})).Return(nil)
	cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{lineOf(cart, product, 2)}, nil)
	cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

	resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: product.ID, Quantity: 2})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assertTotals(t, resp.Totals, "200", "20", "27", "50", "257")
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.True(t, resp.Items[0].LineTotal.Equal(amount("200")))
	assert.Equal(t, testNow, resp.UpdatedAt)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add_item", "ok")))

	cartRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
}

func TestCartService_AddOrIncrementItem_HugeQuantity(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)
	tx := rollingBackTx()
	svc := newTestCartService(cartRepo, productRepo, nil)

	product := burger()
	cart := emptyCart()
	existing := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
	cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
	cartRepo.On("FindItem", ctx, tx, cart.ID, product.ID).Return(existing, nil)

	resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: product.ID, Quantity: math.MaxInt})

	require.Error(t, err)
	assert.Nil(t, resp)

	var stockErr *model.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available())
	assert.Equal(t, math.MaxInt, stockErr.Requested)
	assert.Equal(t, model.KindInsufficientStock, model.KindOf(err))

	assert.True(t, tx.rolledBack)
	cartRepo.AssertNotCalled(t, "UpdateItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

func TestCartService_AddOrIncrementItem_ExceedsStock(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)
	tx := rollingBackTx()
	svc := newTestCartService(cartRepo, productRepo, nil)

	product := burger()
	cart := emptyCart()
	existing := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
	cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
	cartRepo.On("FindItem", ctx, tx, cart.ID, product.ID).Return(existing, nil)

	resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: product.ID, Quantity: 4})

	require.Error(t, err)
	assert.Nil(t, resp)

	var stockErr *model.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Stock)
	assert.Equal(t, 2, stockErr.InCart)
	assert.Equal(t, 3, stockErr.Available())
	assert.Equal(t, model.KindInsufficientStock, model.KindOf(err))

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	cartRepo.AssertNotCalled(t, "UpdateItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "UpdateTotals", mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

func TestCartService_AddOrIncrementItem_IncrementsExistingLine(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)
	tx := committingTx()
	svc := newTestCartService(cartRepo, productRepo, nil)

	product := burger()
	cart := emptyCart()
	existing := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
	cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
	cartRepo.On("FindItem", ctx, tx, cart.ID, product.ID).Return(existing, nil)
	cartRepo.On("UpdateItemQuantity", ctx, tx, existing.ID, 5, testNow).Return(nil)
	cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{lineOf(cart, product, 5)}, nil)
	cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

	resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: product.ID, Quantity: 3})

	require.NoError(t, err)
	// 500 - 50 = 450, tax 67.50, fee 50
	assertTotals(t, resp.Totals, "500", "50", "67.50", "50", "567.50")
	cartRepo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

func TestCartService_AddOrIncrementItem_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		req         *model.AddCartItemRequest
		expectedErr error
	}{
		{
			name:        "Zero quantity",
			req:         &model.AddCartItemRequest{ProductID: uuid.New(), Quantity: 0},
			expectedErr: model.ErrInvalidQuantity,
		},
		{
			name:        "Negative quantity",
			req:         &model.AddCartItemRequest{ProductID: uuid.New(), Quantity: -1},
			expectedErr: model.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartRepo := new(MockCartRepository)
			svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

			resp, err := svc.AddOrIncrementItem(ctx, customer(), tt.req)

			assert.Nil(t, resp)
			assert.Equal(t, tt.expectedErr, err)
			cartRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}

	t.Run("Missing product ID", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		_, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{Quantity: 1})

		assert.Equal(t, model.KindInvalidRequest, model.KindOf(err))
		cartRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
	})
}

func TestCartService_AddOrIncrementItem_ProductChecks(t *testing.T) {
	ctx := context.Background()

	unavailable := burger()
	unavailable.Available = false

	tests := []struct {
		name        string
		product     *model.Product
		expectedErr error
	}{
		{
			name:        "Product not found",
			product:     nil,
			expectedErr: model.ErrProductNotFound,
		},
		{
			name:        "Product unavailable",
			product:     unavailable,
			expectedErr: model.ErrProductUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartRepo := new(MockCartRepository)
			productRepo := new(MockProductRepository)
			tx := rollingBackTx()
			svc := newTestCartService(cartRepo, productRepo, nil)

			productID := burger().ID
			cartRepo.On("BeginTx", ctx).Return(tx, nil)
			if tt.product == nil {
				productRepo.On("GetForShare", ctx, tx, productID).Return(nil, nil)
			} else {
				productRepo.On("GetForShare", ctx, tx, productID).Return(tt.product, nil)
			}

			resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: productID, Quantity: 1})

			assert.Nil(t, resp)
			assert.Equal(t, tt.expectedErr, err)
			assert.True(t, tx.rolledBack)
			cartRepo.AssertNotCalled(t, "GetOrCreateForUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCartService_AddOrIncrementItem_CommitConflict(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	svc := newTestCartService(cartRepo, productRepo, m)

	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(&pgconn.PgError{Code: "40001"})

	product := burger()
	cart := emptyCart()

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
	cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
	cartRepo.On("FindItem", ctx, tx, cart.ID, product.ID).Return(nil, nil)
	cartRepo.On("InsertItem", ctx, tx, mock.Anything).Return(nil)
	cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{lineOf(cart, product, 1)}, nil)
	cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

	resp, err := svc.AddOrIncrementItem(ctx, customer(), &model.AddCartItemRequest{ProductID: product.ID, Quantity: 1})

	assert.Nil(t, resp)
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add_item", "error")))
}

func TestCartService_SetItemQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)
		tx := committingTx()
		svc := newTestCartService(cartRepo, productRepo, nil)

		product := burger()
		cart := emptyCart()
		item := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetByItemForUpdate", ctx, tx, testUser, item.ID).Return(cart, nil)
		cartRepo.On("FindItemByID", ctx, tx, cart.ID, item.ID).Return(item, nil)
		productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)
		cartRepo.On("UpdateItemQuantity", ctx, tx, item.ID, 1, testNow).Return(nil)
		cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{lineOf(cart, product, 1)}, nil)
		cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

		resp, err := svc.SetItemQuantity(ctx, customer(), item.ID, 1)

		require.NoError(t, err)
		assertTotals(t, resp.Totals, "100", "10", "13.50", "50", "153.50")
		cartRepo.AssertExpectations(t)
	})

	t.Run("Absolute quantity above stock", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)
		tx := rollingBackTx()
		svc := newTestCartService(cartRepo, productRepo, nil)

		product := burger()
		cart := emptyCart()
		item := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetByItemForUpdate", ctx, tx, testUser, item.ID).Return(cart, nil)
		cartRepo.On("FindItemByID", ctx, tx, cart.ID, item.ID).Return(item, nil)
		productRepo.On("GetForShare", ctx, tx, product.ID).Return(product, nil)

		_, err := svc.SetItemQuantity(ctx, customer(), item.ID, 6)

		var stockErr *model.StockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 5, stockErr.Available())
		assert.True(t, tx.rolledBack)
	})

	t.Run("Item of another user", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := rollingBackTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		itemID := uuid.New()
		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetByItemForUpdate", ctx, tx, testUser, itemID).Return(nil, nil)

		_, err := svc.SetItemQuantity(ctx, customer(), itemID, 1)

		assert.Equal(t, model.ErrCartItemNotFound, err)
	})

	t.Run("Non-positive quantity", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		_, err := svc.SetItemQuantity(ctx, customer(), uuid.New(), 0)

		assert.Equal(t, model.ErrInvalidQuantity, err)
		cartRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
	})
}

func TestCartService_RemoveItem_LastLine(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	tx := committingTx()
	svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

	product := burger()
	cart := emptyCart()
	cart.Totals = pricing.Totals{
		Subtotal:      amount("200"),
		DiscountTotal: amount("20"),
		Taxes:         amount("27"),
		DeliveryFee:   amount("50"),
		Total:         amount("257"),
	}
	item := &model.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 2}

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	cartRepo.On("GetByItemForUpdate", ctx, tx, testUser, item.ID).Return(cart, nil)
	cartRepo.On("FindItemByID", ctx, tx, cart.ID, item.ID).Return(item, nil)
	cartRepo.On("DeleteItem", ctx, tx, item.ID).Return(nil)
	cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{}, nil)
	cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

	resp, err := svc.RemoveItem(ctx, customer(), item.ID)

	require.NoError(t, err)
	// An empty cart is not charged a delivery fee.
	assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
	assert.Empty(t, resp.Items)
	cartRepo.AssertExpectations(t)
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := committingTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		cart := emptyCart()
		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
		cartRepo.On("DeleteItems", ctx, tx, cart.ID).Return(nil)
		cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{}, nil)
		cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

		resp, err := svc.ClearCart(ctx, customer(), testBusiness)

		require.NoError(t, err)
		assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
		cartRepo.AssertExpectations(t)
	})

	t.Run("Cart not found", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := rollingBackTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetForUpdate", ctx, tx, testUser, testBusiness).Return(nil, nil)

		resp, err := svc.ClearCart(ctx, customer(), testBusiness)

		assert.Nil(t, resp)
		assert.Equal(t, model.ErrCartNotFound, err)
		assert.True(t, tx.rolledBack)
	})
}

func TestCartService_GetOrCreateCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Totals in sync are not rewritten", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := committingTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		cart := emptyCart()
		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
		cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{}, nil)

		resp, err := svc.GetOrCreateCart(ctx, customer(), testBusiness)

		require.NoError(t, err)
		assert.Equal(t, cart.ID, resp.ID)
		assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
		cartRepo.AssertNotCalled(t, "UpdateTotals", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Drifted totals are repaired", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := committingTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		product := burger()
		cart := emptyCart()
		repriced := *product
		repriced.Price = amount("120.00")

		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
		cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{lineOf(cart, &repriced, 1)}, nil)
		cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

		resp, err := svc.GetOrCreateCart(ctx, customer(), testBusiness)

		require.NoError(t, err)
		// 120 - 10 = 110, tax 16.50, fee 50
		assertTotals(t, resp.Totals, "120", "10", "16.50", "50", "176.50")
		cartRepo.AssertExpectations(t)
	})

	t.Run("Lines of a deleted product drop out of totals", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		tx := committingTx()
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		cart := emptyCart()
		cart.Totals.Subtotal = amount("100.00")
		cart.Totals.DiscountTotal = amount("10.00")
		cart.Totals.Taxes = amount("13.50")
		cart.Totals.DeliveryFee = amount("50.00")
		cart.Totals.Total = amount("153.50")

		cartRepo.On("BeginTx", ctx).Return(tx, nil)
		cartRepo.On("GetOrCreateForUpdate", ctx, tx, testUser, testBusiness).Return(cart, nil)
		cartRepo.On("ListLines", ctx, tx, cart.ID).Return([]model.CartLine{}, nil)
		cartRepo.On("UpdateTotals", ctx, tx, cart).Return(nil)

		resp, err := svc.GetOrCreateCart(ctx, customer(), testBusiness)

		require.NoError(t, err)
		assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
		assert.True(t, tx.committed)
		cartRepo.AssertExpectations(t)
	})

	t.Run("Begin error", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

		cartRepo.On("BeginTx", ctx).Return(nil, errors.New("connection refused"))

		resp, err := svc.GetOrCreateCart(ctx, customer(), testBusiness)

		assert.Nil(t, resp)
		require.Error(t, err)
	})
}

func TestCartService_ListCarts(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	tx := committingTx()
	svc := newTestCartService(cartRepo, new(MockProductRepository), nil)

	first := emptyCart()
	second := emptyCart()
	second.ID = uuid.New()
	second.BusinessID = uuid.New()

	cartRepo.On("BeginTx", ctx).Return(tx, nil)
	cartRepo.On("ListByUser", ctx, tx, testUser).Return([]model.Cart{*first, *second}, nil)
	cartRepo.On("ListLines", ctx, tx, first.ID).Return([]model.CartLine{}, nil)
	cartRepo.On("ListLines", ctx, tx, second.ID).Return([]model.CartLine{}, nil)

	carts, err := svc.ListCarts(ctx, customer())

	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, first.ID, carts[0].ID)
	assert.Equal(t, second.BusinessID, carts[1].BusinessID)
	cartRepo.AssertExpectations(t)
}
