package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vinavax/vinavax-backend/api/routes"
	authsvc "github.com/vinavax/vinavax-backend/internal/auth"
	cartstore "github.com/vinavax/vinavax-backend/internal/cart"
	checkoutsvc "github.com/vinavax/vinavax-backend/internal/checkout"
	locationsvc "github.com/vinavax/vinavax-backend/internal/locations"
	ordersvc "github.com/vinavax/vinavax-backend/internal/orders"
	paymentsvc "github.com/vinavax/vinavax-backend/internal/payments"
	promotionsvc "github.com/vinavax/vinavax-backend/internal/promotions"
	"github.com/vinavax/vinavax-backend/internal/users"
	vaccinesvc "github.com/vinavax/vinavax-backend/internal/vaccines"
	"github.com/vinavax/vinavax-backend/pkg/config"
	"github.com/vinavax/vinavax-backend/pkg/db"
	"github.com/vinavax/vinavax-backend/pkg/env"
	"github.com/vinavax/vinavax-backend/pkg/logger"
	"github.com/vinavax/vinavax-backend/pkg/metrics"
	"github.com/vinavax/vinavax-backend/pkg/migrate"
	"github.com/vinavax/vinavax-backend/pkg/momo"
	"github.com/vinavax/vinavax-backend/pkg/outbox"
	pkgredis "github.com/vinavax/vinavax-backend/pkg/redis"
)

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

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		gracefulCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(gracefulCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *pkgredis.Client,
	checkoutMetrics *metrics.CheckoutMetrics,
) (routes.Services, error) {
	gormDB := dbClient.DB()

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	vaccineRepo := vaccinesvc.NewRepository(gormDB)
	vaccineService, err := vaccinesvc.NewService(vaccineRepo)
	if err != nil {
		return routes.Services{}, err
	}

	locationService, err := locationsvc.NewService(locationsvc.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	promotionService, err := promotionsvc.NewService(promotionsvc.NewRepository(gormDB), nil)
	if err != nil {
		return routes.Services{}, err
	}

	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	orderService, err := ordersvc.NewService(ordersvc.NewRepository(gormDB), vaccineRepo, dbClient, outboxService, nil)
	if err != nil {
		return routes.Services{}, err
	}

	cartStore, err := cartstore.NewStore(redisClient, cfg.Cart.TTL, nil)
	if err != nil {
		return routes.Services{}, err
	}

	momoClient, err := momo.NewClient(cfg.MoMo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	paymentService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Repo:       paymentsvc.NewRepository(gormDB),
		Orders:     orderService,
		Promotions: promotionService,
		Carts:      cartStore,
		Gateway:    momoClient,
		Flags:      redisClient,
		Metrics:    checkoutMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Sessions:   redisClient,
		Carts:      cartStore,
		Vaccines:   vaccineRepo,
		Promotions: promotionService,
		Orders:     orderService,
		Payments:   paymentService,
		Metrics:    checkoutMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:       authService,
		Vaccines:   vaccineService,
		Locations:  locationService,
		Promotions: promotionService,
		Orders:     orderService,
		Payments:   paymentService,
		Checkout:   checkoutService,
		Cart:       cartStore,
	}, nil
}
