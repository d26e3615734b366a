package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-kart/internal/auth"
	"food-kart/internal/config"
	"food-kart/internal/database"
	"food-kart/internal/events"
	"food-kart/internal/feeschedule"
	"food-kart/internal/handler"
	"food-kart/internal/idempotency"
	"food-kart/internal/metrics"
	"food-kart/internal/pricing"
	"food-kart/internal/repository"
	"food-kart/internal/router"
	"food-kart/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownGrace = 30 * time.Second
	exitConfig    = 2
	exitRuntime   = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "food-kart: %v\n", err)
		os.Exit(exitConfig)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("food-kart stopped with error")
		stop()
		os.Exit(exitRuntime)
	}
	logger.Info().Msg("food-kart stopped")
}

// run wires the application and blocks until ctx is cancelled or a
// component fails.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("addr", cfg.Server.Address()).Msg("starting food-kart API server")

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	m := metrics.New()

	products := repository.NewProductRepository(pool, logger)
	carts := repository.NewCartRepository(pool, logger)
	orders := repository.NewOrderRepository(pool, logger)
	outbox := repository.NewOutboxRepository(pool, logger)
	methods := repository.NewPaymentMethodRepository(pool, logger)

	schedule, err := loadFeeSchedule(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("fee schedule: %w", err)
	}
	pricer := pricing.NewPricer(pricing.Config{
		TaxRate:         cfg.Pricing.TaxRate,
		BaseDeliveryFee: cfg.Pricing.DeliveryFee,
	}, schedule)

	store, closeStore, err := idempotencyStore(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	defer closeStore()

	productSvc := service.NewProductService(products, logger)
	cartSvc := service.NewCartService(carts, products, pricer, m, logger)
	orderSvc := service.NewOrderService(orders, products, carts, outbox, pricer, store, m, logger)
	methodSvc := service.NewPaymentMethodService(methods, logger)

	server := &http.Server{
		Addr: cfg.Server.Address(),
		Handler: router.New(router.Handlers{
			Health:         handler.NewHealthHandler(pool, logger),
			Products:       handler.NewProductHandler(productSvc, logger),
			Carts:          handler.NewCartHandler(cartSvc, orderSvc, logger),
			Orders:         handler.NewOrderHandler(orderSvc, logger),
			PaymentMethods: handler.NewPaymentMethodHandler(methodSvc, logger),
		}, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), m, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if cfg.Kafka.Enabled() {
		relay := events.NewRelay(outbox, events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), events.RelayConfig{
			PollInterval: cfg.Kafka.PollInterval,
			BatchSize:    cfg.Kafka.BatchSize,
		}, m, logger)
		g.Go(func() error {
			relay.Run(gctx)
			return nil
		})
	} else {
		logger.Warn().Msg("no kafka brokers configured, order events stay in the outbox")
	}

	return g.Wait()
}

// idempotencyStore connects to redis when enabled. Without redis the
// Idempotency-Key header has no effect.
func idempotencyStore(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (idempotency.Store, func(), error) {
	if !cfg.Enabled {
		logger.Warn().Msg("redis disabled, Idempotency-Key headers are ignored")
		return idempotency.NoopStore{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.KeyTTL).Msg("idempotency keys stored in redis")
	return idempotency.NewRedisStore(client, cfg.KeyTTL), func() { _ = client.Close() }, nil
}

// loadFeeSchedule reads the delivery fee overrides from S3 with a local
// file fallback.
func loadFeeSchedule(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*feeschedule.Schedule, error) {
	fileLoader := feeschedule.NewFileLoader(logger)

	var s3Loader feeschedule.Loader
	if cfg.S3.Enabled {
		l, err := feeschedule.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.S3.Bucket).Msg("S3 unavailable, reading fee files from disk")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for fee files (S3 disabled)")
	}

	loader := feeschedule.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	return feeschedule.Load(ctx, cfg.FeeSchedule.Files, loader, logger)
}
