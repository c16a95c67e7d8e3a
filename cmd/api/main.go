package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/address"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/coupon"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/reviews"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithUserAgent(cfg.Backend.UserAgent),
		backend.WithDefaultLanguage(cfg.Backend.DefaultLanguage),
		backend.WithMetrics(metrics.NewUpstreamMetrics(registry)),
		backend.WithLogger(logg),
	)
	requireResource(ctx, logg, "backend client", err)

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	requireResource(ctx, logg, "session manager", err)

	coupons, err := coupon.NewStore(redisClient, cfg.Session.CouponTTL)
	requireResource(ctx, logg, "coupon store", err)

	addressAPI, err := address.NewAPI(backendClient, cfg.Checkout.DefaultCountryID)
	requireResource(ctx, logg, "address api", err)
	productAPI, err := products.NewAPI(backendClient)
	requireResource(ctx, logg, "product api", err)
	reviewAPI, err := reviews.NewAPI(backendClient)
	requireResource(ctx, logg, "review api", err)
	orderAPI, err := orders.NewAPI(backendClient)
	requireResource(ctx, logg, "order api", err)

	confirmations := orders.NewConfirmationRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(backendClient, confirmations, cfg.Checkout, logg)
	requireResource(ctx, logg, "checkout service", err)

	provider, err := storefront.NewProvider(storefront.Deps{
		Backend:     backendClient,
		Coupons:     coupons,
		Addresses:   addressAPI,
		CartMetrics: metrics.NewCartMetrics(registry),
	}, cfg.Session, logg)
	requireResource(ctx, logg, "store provider", err)

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			Sessions:      sessionManager,
			Stores:        provider,
			Redis:         redisClient,
			Checkout:      checkoutService,
			Geo:           addressAPI,
			Catalog:       productAPI,
			Reviews:       reviewAPI,
			Orders:        orderAPI,
			Confirmations: confirmations,
			Ready: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting storefront api")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down storefront api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
		provider.Purge()
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", name), "failed to initialize", err)
	os.Exit(1)
}
