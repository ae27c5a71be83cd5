package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/payments/razorpay"
	stripeprovider "github.com/angelmondragon/storefront-backend/internal/payments/stripe"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/webhooks"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.GetID(),
		"providers": deps.Providers.Names(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	registerer := prometheus.DefaultRegisterer
	paymentMetrics := metrics.NewPaymentMetrics(registerer)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("session manager: %w", err)
	}

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}

	productService, err := product.NewService(productRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("product service: %w", err)
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart store: %w", err)
	}
	cartService, err := cart.NewService(cartStore, productRepo, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart service: %w", err)
	}

	providers, err := buildProviders(cfg, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:             cartService,
		Catalog:           productRepo,
		Users:             userRepo,
		Orders:            orderRepo,
		Providers:         providers,
		TransactionRunner: dbClient,
		Currency:          cfg.Checkout.Currency,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout service: %w", err)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Orders:            orderRepo,
		Providers:         providers,
		TransactionRunner: dbClient,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payment service: %w", err)
	}

	reconciler, err := webhooks.NewReconciler(webhooks.ReconcilerParams{
		Orders:            orderRepo,
		TransactionRunner: dbClient,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("webhook reconciler: %w", err)
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("orders service: %w", err)
	}

	return routes.Dependencies{
		DB:        dbClient,
		Redis:     redisClient,
		Sessions:  sessions,
		Metrics:   prometheus.DefaultGatherer,
		Auth:      authService,
		Products:  productService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Payments:  paymentService,
		Orders:    ordersService,
		Users:     userRepo,
		Providers: providers,
		Webhooks:  reconciler,
	}, nil
}

// buildProviders enables every gateway whose credentials are configured.
func buildProviders(cfg *config.Config, logg *logger.Logger) (*payments.Registry, error) {
	var enabled []payments.Provider

	if cfg.Razorpay.Enabled() {
		rp, err := razorpay.New(cfg.Razorpay)
		if err != nil {
			return nil, fmt.Errorf("razorpay provider: %w", err)
		}
		enabled = append(enabled, rp)
	}

	if cfg.Stripe.Enabled() {
		client, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			return nil, fmt.Errorf("stripe client: %w", err)
		}
		base := strings.TrimRight(cfg.App.PublicURL, "/")
		sp, err := stripeprovider.New(stripeprovider.Params{
			Sessions:   stripeprovider.NewSessionAPI(client.API()),
			Secrets:    client,
			SuccessURL: base + cfg.Checkout.SuccessPath,
			CancelURL:  base + cfg.Checkout.CancelPath,
		})
		if err != nil {
			return nil, fmt.Errorf("stripe provider: %w", err)
		}
		enabled = append(enabled, sp)
	}

	return payments.NewRegistry(enabled...), nil
}
