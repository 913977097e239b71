package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/shopvia/shopvia-backend/api"
	"github.com/shopvia/shopvia-backend/api/routes"
	"github.com/shopvia/shopvia-backend/internal/address"
	"github.com/shopvia/shopvia-backend/internal/cart"
	"github.com/shopvia/shopvia-backend/internal/checkout"
	"github.com/shopvia/shopvia-backend/internal/orders"
	"github.com/shopvia/shopvia-backend/internal/points"
	"github.com/shopvia/shopvia-backend/internal/products"
	"github.com/shopvia/shopvia-backend/internal/retry"
	"github.com/shopvia/shopvia-backend/internal/stock"
	"github.com/shopvia/shopvia-backend/internal/users"
	paymentwebhook "github.com/shopvia/shopvia-backend/internal/webhooks/payment"
	"github.com/shopvia/shopvia-backend/pkg/config"
	"github.com/shopvia/shopvia-backend/pkg/db"
	"github.com/shopvia/shopvia-backend/pkg/logger"
	"github.com/shopvia/shopvia-backend/pkg/metrics"
	"github.com/shopvia/shopvia-backend/pkg/migrate"
	"github.com/shopvia/shopvia-backend/pkg/redis"
	"github.com/shopvia/shopvia-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "shopvia-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.DB().DB()
		if err == nil {
			err = migrate.Up(ctx, sqlDB)
		}
		if err != nil {
			logg.Error(ctx, "auto-migration failed", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "redis unavailable", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		logg.Error(ctx, "square client init failed", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gdb := dbClient.DB()
	policy := points.NewPolicy(cfg.Points)
	coordinator := retry.NewCoordinator(cfg.Checkout, logg)
	ordersRepo := orders.NewRepository(gdb)

	checkoutService := checkout.NewService(checkout.ServiceParams{
		Tx:         dbClient,
		Orders:     ordersRepo,
		Products:   products.NewRepository(gdb),
		Users:      users.NewRepository(gdb),
		Addresses:  address.NewRepository(gdb),
		Cart:       cart.NewRepository(gdb),
		Ledger:     points.NewLedger(gdb),
		Reconciler: stock.NewReconciler(gdb),
		Policy:     policy,
		Retry:      coordinator,
		Gateway:    squareClient,
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})

	finalizer := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Tx:         dbClient,
		Orders:     ordersRepo,
		Cart:       cart.NewRepository(gdb),
		Ledger:     points.NewLedger(gdb),
		Reconciler: stock.NewReconciler(gdb),
		Policy:     policy,
		Retry:      coordinator,
		Guard:      paymentwebhook.NewGuard(redisClient, cfg.Webhook.EventTTL),
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})

	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Checkout:  checkoutService,
		Orders:    ordersRepo,
		Finalizer: finalizer,
		Square:    squareClient,
		Metrics:   registry,
	})

	server := api.NewServer(":"+cfg.App.Port, router, logg)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "http server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		logg.Error(shutdownCtx, "shutdown finished with errors", errs)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "shutdown complete")
}
