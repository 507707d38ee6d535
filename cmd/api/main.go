package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabricspeaks/fabricspeaks-backend/api/routes"
	cartsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/cart"
	checkoutsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/checkout"
	inventorysvc "github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	ordersvc "github.com/fabricspeaks/fabricspeaks-backend/internal/orders"
	paymentsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/payments"
	productsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/products"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/metrics"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/migrate"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/idempotency"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/razorpay"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/redis"
)

const webhookDedupeTTL = 7 * 24 * time.Hour

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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, gateway)
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
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	gateway *razorpay.Client,
) (routes.Services, error) {
	gdb := dbClient.DB()

	productRepo := productsvc.NewRepository(gdb)
	cartRepo := cartsvc.NewRepository(gdb)
	checkoutRepo := checkoutsvc.NewRepository(gdb)
	paymentRepo := paymentsvc.NewRepository(gdb)
	orderRepo := ordersvc.NewRepository(gdb)
	inventoryRepo := inventorysvc.NewRepository(gdb)

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	webhookDedupe, err := idempotency.NewManager(redisClient, webhookDedupeTTL)
	if err != nil {
		return routes.Services{}, err
	}

	products, err := productsvc.NewService(productRepo)
	if err != nil {
		return routes.Services{}, err
	}

	cart, err := cartsvc.NewService(cartRepo, productRepo, cfg.Checkout.MaxQuantityPerRow)
	if err != nil {
		return routes.Services{}, err
	}

	validator, err := cartsvc.NewValidator(productRepo, cfg.Inventory.LowStockThreshold)
	if err != nil {
		return routes.Services{}, err
	}

	inventorySvc, err := inventorysvc.NewService(dbClient, inventoryRepo, outboxSvc, cfg.Inventory, checkoutMetrics, logg)
	if err != nil {
		return routes.Services{}, err
	}

	checkout, err := checkoutsvc.NewService(
		dbClient,
		checkoutRepo,
		cartRepo,
		validator,
		gateway,
		outboxSvc,
		cfg.Checkout,
		cfg.Razorpay.KeyID,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	payments, err := paymentsvc.NewService(
		dbClient,
		paymentRepo,
		inventorySvc,
		outboxSvc,
		webhookDedupe,
		cfg.Razorpay,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	orders, err := ordersvc.NewService(dbClient, orderRepo, inventorySvc, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:  products,
		Cart:      cart,
		Validator: validator,
		Checkout:  checkout,
		Payments:  payments,
		Orders:    orders,
		Inventory: inventorySvc,
	}, nil
}
