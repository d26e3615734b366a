package service

import (
	"context"
	"testing"
	"time"

	"food-kart/internal/model"
	"food-kart/internal/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetManyForShare(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Product, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCartRepository) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID, businessID uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetByItemForUpdate(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.Cart, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Cart), args.Error(1)
}

func (m *MockCartRepository) ListLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error) {
	args := m.Called(ctx, tx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) FindItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID) (*model.CartItem, error) {
	args := m.Called(ctx, tx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartRepository) FindItemByID(ctx context.Context, tx pgx.Tx, cartID, itemID uuid.UUID) (*model.CartItem, error) {
	args := m.Called(ctx, tx, cartID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartRepository) InsertItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	return m.Called(ctx, tx, item).Error(0)
}

func (m *MockCartRepository) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int, now time.Time) error {
	return m.Called(ctx, tx, itemID, quantity, now).Error(0)
}

func (m *MockCartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error {
	return m.Called(ctx, tx, itemID).Error(0)
}

func (m *MockCartRepository) DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	return m.Called(ctx, tx, cartID).Error(0)
}

func (m *MockCartRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	return m.Called(ctx, tx, cart).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	return m.Called(ctx, tx, cartID).Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Insert(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error {
	return m.Called(ctx, tx, event).Error(0)
}

func (m *MockOutboxRepository) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return m.Called(ctx, id, sentAt).Error(0)
}

// MockPaymentMethodRepository is a mock implementation of PaymentMethodRepository.
type MockPaymentMethodRepository struct {
	mock.Mock
}

func (m *MockPaymentMethodRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.PaymentMethod, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.PaymentMethod, error) {
	args := m.Called(ctx, tx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) CountByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentMethodRepository) Create(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error {
	return m.Called(ctx, tx, pm).Error(0)
}

func (m *MockPaymentMethodRepository) Update(ctx context.Context, tx pgx.Tx, pm *model.PaymentMethod) error {
	return m.Called(ctx, tx, pm).Error(0)
}

func (m *MockPaymentMethodRepository) DemoteOthers(ctx context.Context, tx pgx.Tx, userID, keepID uuid.UUID) error {
	return m.Called(ctx, tx, userID, keepID).Error(0)
}

func (m *MockPaymentMethodRepository) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, userID, id)
	return args.Bool(0), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of idempotency.Store.
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, result string) error {
	return m.Called(ctx, key, result).Error(0)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// committingTx returns a MockTx expecting a successful commit.
func committingTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	return tx
}

// rollingBackTx returns a MockTx expecting a rollback.
func rollingBackTx() *MockTx {
	tx := new(MockTx)
	tx.On("Rollback", mock.Anything).Return(nil)
	return tx
}

var (
	testNow      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testBusiness = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUser     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func customer() model.Identity {
	return model.Identity{UserID: testUser, Roles: []string{model.RoleCustomer}}
}

// staff returns a fresh identity with role. Business staff work for
// testBusiness.
func staff(role string) model.Identity {
	identity := model.Identity{UserID: uuid.New(), Roles: []string{role}}
	if role == model.RoleBusiness {
		business := testBusiness
		identity.BusinessID = &business
	}
	return identity
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testPricer prices with a 15% tax rate and a flat 50.00 delivery fee.
func testPricer() *pricing.Pricer {
	return pricing.NewPricer(pricing.Config{
		TaxRate:         amount("0.15"),
		BaseDeliveryFee: amount("50"),
	}, nil)
}

// burger is the reference product: price 100, discount 10, stock 5.
func burger() *model.Product {
	return &model.Product{
		ID:         uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		BusinessID: testBusiness,
		Name:       "Burger",
		Price:      amount("100.00"),
		Discount:   amount("10.00"),
		Stock:      5,
		Available:  true,
	}
}

func emptyCart() *model.Cart {
	return &model.Cart{
		ID:         uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		UserID:     testUser,
		BusinessID: testBusiness,
		Totals:     pricing.ZeroTotals(),
	}
}

func lineOf(cart *model.Cart, p *model.Product, qty int) model.CartLine {
	return model.CartLine{
		CartItem: model.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: p.ID,
			Quantity:  qty,
		},
		ProductName: p.Name,
		Price:       p.Price,
		Discount:    p.Discount,
		Stock:       p.Stock,
		Available:   p.Available,
	}
}

func assertTotals(t *testing.T, got pricing.Totals, subtotal, discount, taxes, fee, total string) {
	t.Helper()
	want := pricing.Totals{
		Subtotal:      amount(subtotal),
		DiscountTotal: amount(discount),
		Taxes:         amount(taxes),
		DeliveryFee:   amount(fee),
		Total:         amount(total),
	}
	if !got.Equal(want) {
		t.Errorf("totals = %+v, want %+v", got, want)
	}
}
