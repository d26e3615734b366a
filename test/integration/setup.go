package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"food-kart/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Seeded catalog. Burger and fries belong to BusinessA, pizza to BusinessB.
var (
	BusinessA = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	BusinessB = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")

	BurgerID = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	FriesID  = uuid.MustParse("10000000-0000-0000-0000-000000000002")
	SodaID   = uuid.MustParse("10000000-0000-0000-0000-000000000003")
	PizzaID  = uuid.MustParse("20000000-0000-0000-0000-000000000001")
)

// mutableTables are emptied between subtests, children first.
var mutableTables = []string{
	"outbox_events", "order_items", "orders",
	"cart_items", "carts", "payment_methods", "favourites", "products",
}

// TestDB is a migrated Postgres running in a throwaway container.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts Postgres, applies the embedded migrations and opens a
// pool. Everything is torn down when t finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("foodkart"),
		postgres.WithUsername("kart"),
		postgres.WithPassword("kart"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second)),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres")

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(connStr, zerolog.Nop()), "migrate")

	cfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	cfg.MaxConns = 10
	cfg.ConnConfig.RuntimeParams["lock_timeout"] = "5s"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	return &TestDB{Container: ctr, Pool: pool, ConnStr: connStr}
}

// SeedProducts inserts the catalog above in one batch.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	const insert = `INSERT INTO products (id, business_id, name, price, discount, stock, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	dec := decimal.RequireFromString
	batch := &pgx.Batch{}
	batch.Queue(insert, BurgerID, BusinessA, "Burger", dec("100.00"), dec("10.00"), 5, true)
	batch.Queue(insert, FriesID, BusinessA, "Fries", dec("30.00"), decimal.Zero, 20, true)
	batch.Queue(insert, SodaID, BusinessA, "Soda", dec("5.00"), decimal.Zero, 50, false)
	batch.Queue(insert, PizzaID, BusinessB, "Pizza", dec("80.00"), decimal.Zero, 10, true)

	require.NoError(t, pool.SendBatch(context.Background(), batch).Close(), "seed catalog")
}

// SetStock overwrites a product's stock.
func SetStock(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID, stock int) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "UPDATE products SET stock = $1 WHERE id = $2", stock, productID)
	require.NoError(t, err)
}

// CleanupDB empties every mutable table.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "TRUNCATE "+strings.Join(mutableTables, ", ")+" CASCADE")
	require.NoError(t, err, "truncate")
}
