package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront/api/controllers/orders"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/address"
	checkoutsvc "github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/reviews"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/types"
)

type sessionManager interface {
	Ensure(ctx context.Context, candidate string) (string, bool, error)
	Revoke(ctx context.Context, id string) error
}

type storeProvider interface {
	Acquire(ctx context.Context, key string) (*storefront.Stores, error)
	Reset(ctx context.Context, key string) error
}

// redisStore backs idempotency replay and rate limit counters.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type geoLookup interface {
	Cities(ctx context.Context) ([]address.City, error)
	Areas(ctx context.Context, cityID types.ID) ([]address.Area, error)
}

type productCatalog interface {
	List(ctx context.Context, f products.Filter) ([]products.Product, types.PageMeta, error)
	Get(ctx context.Context, id types.ID) (products.Product, error)
}

type reviewSubmitter interface {
	Submit(ctx context.Context, r reviews.Review) (reviews.Submitted, error)
}

type orderTracker interface {
	Track(ctx context.Context, code string, lookup orders.Lookup) (orders.Order, error)
}

// Services is everything the HTTP surface dispatches to.
type Services struct {
	Sessions      sessionManager
	Stores        storeProvider
	Redis         redisStore
	Checkout      checkoutsvc.Service
	Geo           geoLookup
	Catalog       productCatalog
	Reviews       reviewSubmitter
	Orders        orderTracker
	Confirmations orders.ConfirmationRepository
	// Ready lists the dependencies pinged by /health/ready.
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	trackPolicy := middleware.NewRateLimitPolicy(
		"order_track",
		cfg.RateLimit.TrackWindow,
		cfg.RateLimit.TrackIPLimit,
		0,
	)
	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon",
		cfg.RateLimit.CouponWindow,
		0,
		cfg.RateLimit.CouponLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, svc.Ready, logg))
	})
	r.Handle("/metrics", metricsHandler(svc.Gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Sessions(svc.Sessions, cfg.Session, logg))
		r.Use(middleware.Idempotency(svc.Redis, middleware.DefaultIdempotencyRules(cfg.Checkout.IdempotencyTTL), logg))

		r.Get("/session", controllers.SessionInfo(logg))
		r.Post("/session/logout", controllers.SessionLogout(svc.Stores, svc.Sessions, cfg.Session, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.SessionStores(svc.Stores, logg))
			r.Get("/", cartcontrollers.Fetch(logg))
			r.Delete("/", cartcontrollers.Clear(logg))
			r.Get("/state", cartcontrollers.State(logg))
			r.Post("/sync", cartcontrollers.Sync(logg))
			r.Post("/items", cartcontrollers.AddItem(logg))
			r.Put("/items/{itemId}", cartcontrollers.UpdateItem(logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(logg))
			r.With(middleware.RateLimit(couponPolicy, svc.Redis, logg)).Post("/coupon", cartcontrollers.ApplyCoupon(logg))
			r.Delete("/coupon", cartcontrollers.ClearCoupon(logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Use(middleware.SessionStores(svc.Stores, logg))
			r.Get("/", controllers.AddressList(logg))
			r.Post("/", controllers.AddressCreate(logg))
			r.Put("/{addressId}", controllers.AddressUpdate(logg))
			r.Delete("/{addressId}", controllers.AddressDelete(logg))
			r.Post("/{addressId}/select", controllers.AddressSelect(logg))
		})
		r.Get("/cities", controllers.Cities(svc.Geo, logg))
		r.Get("/areas", controllers.Areas(svc.Geo, logg))

		r.With(middleware.SessionStores(svc.Stores, logg)).Post("/checkout", controllers.Checkout(svc.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(trackPolicy, svc.Redis, logg)).Get("/track/{code}", ordercontrollers.Track(svc.Orders, logg))
			r.Get("/confirmation", ordercontrollers.Confirmation(svc.Confirmations, logg))
		})

		r.Get("/products", controllers.ProductList(svc.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductGet(svc.Catalog, logg))
		r.With(middleware.RequireUser(logg)).Post("/reviews", controllers.ReviewSubmit(svc.Reviews, logg))
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
