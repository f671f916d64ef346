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

	"checkout-engine/internal/config"
	"checkout-engine/internal/coupon"
	"checkout-engine/internal/currency"
	"checkout-engine/internal/database"
	"checkout-engine/internal/events"
	"checkout-engine/internal/handler"
	"checkout-engine/internal/orderkey"
	"checkout-engine/internal/payment"
	"checkout-engine/internal/repository"
	"checkout-engine/internal/retry"
	"checkout-engine/internal/router"
	"checkout-engine/internal/rules"
	"checkout-engine/internal/service"
	"checkout-engine/internal/shipping"
	"checkout-engine/internal/tax"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting checkout engine API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize repositories
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	ruleRepo := repository.NewCartRuleRepository(pool, logger)
	shippingRepo := repository.NewShippingMethodRepository(pool, logger)
	taxRepo := repository.NewTaxRateRepository(pool, logger)
	channelRepo := repository.NewSalesChannelRepository(pool, logger)
	methodRepo := repository.NewPaymentMethodRepository(pool, logger)
	txnRepo := repository.NewPaymentTransactionRepository(pool, logger)

	// Exchange rates: live sales channel first, snapshot as fallback
	snapshot, err := loadRateSnapshot(ctx, cfg.Rates, logger)
	if err != nil {
		return fmt.Errorf("failed to load exchange-rate snapshot: %w", err)
	}
	rates := currency.NewResolver(channelRepo, cfg.Checkout.BaseCurrency, logger,
		currency.WithSnapshot(snapshot),
		currency.WithRetry(retry.DefaultConfig()),
	)

	keys, err := orderkey.NewCodec(cfg.OrderKey.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize order keys: %w", err)
	}

	// Payment adapters
	bus := events.NewBus(logger)
	adapters, webhook, err := newPaymentAdapters(cfg, txnRepo, bus, logger)
	if err != nil {
		return err
	}
	logger.Info().Strs("adapters", adapters.Names()).Msg("payment adapters registered")

	// Initialize services
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Carts:          cartRepo,
		Orders:         orderRepo,
		Coupons:        couponRepo,
		Rules:          ruleRepo,
		PaymentMethods: methodRepo,
		Validator:      coupon.NewValidator(couponRepo, time.Now, logger),
		Engine:         rules.NewEngine(ruleRepo, rules.UnknownTriggerPolicy(cfg.Checkout.UnknownTriggerPolicy), time.Now, logger),
		Shipping:       shipping.NewCalculator(shippingRepo, logger),
		Tax:            tax.NewResolver(taxRepo, retry.DefaultConfig(), logger),
		Rates:          rates,
		Keys:           keys,
		OrderKeyTTL:    cfg.OrderKey.TTL,
		Now:            time.Now,
	}, logger)
	settlementService := service.NewSettlementService(service.SettlementDeps{
		Orders:         orderRepo,
		PaymentMethods: methodRepo,
		Adapters:       adapters,
		Rates:          rates,
		Keys:           keys,
		OrderKeyTTL:    cfg.OrderKey.TTL,
		StorefrontURL:  cfg.Storefront.URL,
	}, logger)
	statusService := service.NewOrderStatusService(orderRepo, txnRepo, keys, bus, cfg.Checkout.PollInterval, logger)

	// Initialize HTTP handlers
	var webhookProcessor handler.WebhookProcessor
	if webhook != nil {
		webhookProcessor = webhook
	}
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)
	paymentHandler := handler.NewPaymentHandler(settlementService, webhookProcessor, logger)
	orderHandler := handler.NewOrderHandler(statusService, logger)

	// Initialize router
	mux := router.New(checkoutHandler, paymentHandler, orderHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("base_currency", cfg.Checkout.BaseCurrency).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadRateSnapshot reads the fallback rate table from S3 when enabled, then
// from the local file. No configured file means no snapshot.
func loadRateSnapshot(ctx context.Context, cfg config.RatesConfig, logger zerolog.Logger) (currency.Snapshot, error) {
	if cfg.SnapshotFile == "" {
		logger.Info().Msg("no exchange-rate snapshot configured")
		return nil, nil
	}

	fileLoader := currency.NewFileLoader(logger)
	var s3Loader currency.Loader
	if cfg.S3Enabled {
		l, err := currency.NewS3Loader(ctx, cfg.S3Bucket, cfg.S3Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for rate snapshot (S3 disabled)")
	}

	loader := currency.NewFallbackLoader(s3Loader, fileLoader, cfg.S3Prefix, cfg.S3Enabled, logger)
	snapshot, err := loader.Load(ctx, cfg.SnapshotFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("currencies", len(snapshot)).Msg("exchange-rate snapshot loaded")
	return snapshot, nil
}

func newPaymentAdapters(
	cfg *config.Config,
	store payment.TransactionStore,
	bus *events.Bus,
	logger zerolog.Logger,
) (*payment.Registry, *payment.StripeWebhook, error) {
	var adapters []payment.Adapter
	var webhook *payment.StripeWebhook

	if cfg.Stripe.SecretKey != "" {
		stripeAdapter, err := payment.NewStripeAdapter(payment.StripeConfig{
			APIKey: cfg.Stripe.SecretKey,
			Store:  store,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize stripe adapter: %w", err)
		}
		adapters = append(adapters, stripeAdapter)
		webhook = payment.NewStripeWebhook(cfg.Stripe.WebhookSecret, store, bus, logger)
	} else {
		logger.Warn().Msg("stripe disabled: STRIPE_SECRET_KEY not set")
	}

	for _, name := range cfg.Checkout.OfflineAdapters {
		adapters = append(adapters, payment.NewOfflineAdapter(name, store, time.Now))
	}

	return payment.NewRegistry(adapters...), webhook, nil
}
