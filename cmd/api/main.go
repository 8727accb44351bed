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

	"storefront/internal/address"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/seed"
	anonymoussvc "storefront/internal/service/anonymous"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/store"
	"storefront/internal/store/memory"
	"storefront/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	metrics := telemetry.New(cfg.MetricsNamespace)
	coupons := couponsvc.NewValidator(logger)

	cartService := cartsvc.New(st, coupons, cartsvc.Config{
		DefaultCurrency: cfg.DefaultCurrency,
		TTL:             cfg.CartTTL,
	}, logger, cartsvc.WithMetrics(metrics))
	checkoutService := checkoutsvc.New(st, coupons, address.NewJPNormalizer(), logger, checkoutsvc.WithMetrics(metrics))
	orderService := ordersvc.New(st, logger, ordersvc.WithMetrics(metrics))
	repos := st.Repos()
	anonymousService := anonymoussvc.New(repos.Sessions, cfg.SessionTTL)
	customerService := customersvc.New(repos.Customers, repos.Tokens, cartService, logger,
		customersvc.WithKeyRotator(anonymousService))
	productService := productsvc.New(repos.Products)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Store:         st,
		ProductSvc:    productService,
		CartSvc:       cartService,
		CheckoutSvc:   checkoutService,
		OrderSvc:      orderService,
		CustomerSvc:   customerService,
		AnonymousSvc:  anonymousService,
		Metrics:       metrics,
		SessionCookie: cfg.SessionCookieName,
		SecureCookies: cfg.Env == "prod",
		CORSOrigins:   cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runJanitor(janitorCtx, logger, customerService, anonymousService)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopJanitor()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

// openStore builds the configured Store. The memory driver is loaded with
// the demo catalog since it starts empty on every boot.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		st := memory.New()
		if err := seed.Apply(ctx, st, cfg.DefaultCurrency); err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		return st, func() {}, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to db: %w", err)
		}
		return store.NewPostgres(pool, logger), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

const janitorInterval = 10 * time.Minute

// runJanitor periodically drops expired customer tokens and anonymous sessions.
func runJanitor(ctx context.Context, logger *zap.Logger, customers *customersvc.Service, sessions *anonymoussvc.Service) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens, err := customers.PruneTokens(ctx)
			if err != nil {
				logger.Warn("token prune failed", zap.Error(err))
			}
			swept, err := sessions.Sweep(ctx)
			if err != nil {
				logger.Warn("session sweep failed", zap.Error(err))
			}
			logger.Debug("janitor pass", zap.Int64("tokens", tokens), zap.Int64("sessions", swept))
		}
	}
}
