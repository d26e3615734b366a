package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"food-kart/internal/middleware"
	"food-kart/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cart(args mock.Arguments) (*model.CartResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) GetOrCreateCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error) {
	return m.cart(m.Called(ctx, identity, businessID))
}

func (m *MockCartService) ListCarts(ctx context.Context, identity model.Identity) ([]model.CartResponse, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartResponse), args.Error(1)
}

func (m *MockCartService) AddOrIncrementItem(ctx context.Context, identity model.Identity, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	return m.cart(m.Called(ctx, identity, req))
}

func (m *MockCartService) SetItemQuantity(ctx context.Context, identity model.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error) {
	return m.cart(m.Called(ctx, identity, itemID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, identity model.Identity, itemID uuid.UUID) (*model.CartResponse, error) {
	return m.cart(m.Called(ctx, identity, itemID))
}

func (m *MockCartService) ClearCart(ctx context.Context, identity model.Identity, businessID uuid.UUID) (*model.CartResponse, error) {
	return m.cart(m.Called(ctx, identity, businessID))
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) order(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, identity model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error) {
	return m.order(m.Called(ctx, identity, req, idempotencyKey))
}

func (m *MockOrderService) Checkout(ctx context.Context, identity model.Identity, businessID uuid.UUID, req *model.CheckoutRequest, idempotencyKey string) (*model.Order, error) {
	return m.order(m.Called(ctx, identity, businessID, req, idempotencyKey))
}

func (m *MockOrderService) GetOrder(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, identity, id))
}

func (m *MockOrderService) ListOrders(ctx context.Context, identity model.Identity, filter model.OrderFilter, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, identity, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.OrderPatch) (*model.Order, error) {
	return m.order(m.Called(ctx, identity, id, patch))
}

// MockPaymentMethodService is a mock implementation of PaymentMethodService.
type MockPaymentMethodService struct {
	mock.Mock
}

func (m *MockPaymentMethodService) method(args mock.Arguments) (*model.PaymentMethod, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodService) List(ctx context.Context, identity model.Identity) ([]model.PaymentMethod, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodService) Get(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.PaymentMethod, error) {
	return m.method(m.Called(ctx, identity, id))
}

func (m *MockPaymentMethodService) Create(ctx context.Context, identity model.Identity, req *model.PaymentMethodRequest) (*model.PaymentMethod, error) {
	return m.method(m.Called(ctx, identity, req))
}

func (m *MockPaymentMethodService) Update(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.PaymentMethodPatch) (*model.PaymentMethod, error) {
	return m.method(m.Called(ctx, identity, id, patch))
}

func (m *MockPaymentMethodService) Delete(ctx context.Context, identity model.Identity, id uuid.UUID) error {
	return m.Called(ctx, identity, id).Error(0)
}

var testIdentity = model.Identity{
	UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
	Roles:  []string{model.RoleCustomer},
}

// newRequest builds an authenticated request with chi route params.
func newRequest(t *testing.T, method, target string, body any, params map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = model.WithIdentity(ctx, testIdentity)
	return req.WithContext(ctx)
}

// anonymous strips the identity from a request.
func anonymous(req *http.Request) *http.Request {
	rctx := chi.RouteContext(req.Context())
	return req.WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, rctx))
}

// withRequestID runs the request through the RequestID middleware.
func withRequestID(h http.HandlerFunc, id string, w http.ResponseWriter, req *http.Request) {
	req.Header.Set(middleware.RequestIDHeader, id)
	middleware.RequestID(h).ServeHTTP(w, req)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
