package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

const testSessionID = "1700000000000-0a1b2c3d4e5f"

type stubSessions struct{}

func (stubSessions) Ensure(ctx context.Context, candidate string) (string, bool, error) {
	if candidate != "" {
		return candidate, false, nil
	}
	return testSessionID, true, nil
}

func (stubSessions) Revoke(ctx context.Context, id string) error { return nil }

type memRedis struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newMemRedis() *memRedis {
	return &memRedis{values: map[string]string{}, counters: map[string]int64{}}
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memRedis) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memRedis) RateLimitKey(scope string) string { return "rl:" + scope }

type noopCartAPI struct{}

func (noopCartAPI) GetCart(ctx context.Context, q cart.Query) (cart.Cart, error) { return cart.Cart{}, nil }
func (noopCartAPI) AddOrUpdate(ctx context.Context, m cart.Mutation) error    { return nil }
func (noopCartAPI) Remove(ctx context.Context, itemID, itemableID types.ID, itemableType enums.ItemableType, couponCode *string) error {
	return nil
}

type noopCoupons struct{}

func (noopCoupons) Get(ctx context.Context) (string, bool, error) { return "", false, nil }
func (noopCoupons) Set(ctx context.Context, code string) error     { return nil }
func (noopCoupons) Clear(ctx context.Context) error                { return nil }

type stubProvider struct {
	mu       sync.Mutex
	acquired []string
	store    *cart.Store
}

func (p *stubProvider) Acquire(ctx context.Context, key string) (*storefront.Stores, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired = append(p.acquired, key)
	return &storefront.Stores{Key: key, Cart: p.store}, nil
}

func (p *stubProvider) Reset(ctx context.Context, key string) error { return nil }

type stubTracker struct{}

func (stubTracker) Track(ctx context.Context, code string, lookup orders.Lookup) (orders.Order, error) {
	return orders.Order{Code: code, Status: "pending"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "dev"},
		Session:   config.SessionConfig{CookieName: "session_id", TTL: time.Hour},
		Checkout:  config.CheckoutConfig{IdempotencyTTL: time.Hour},
		RateLimit: config.RateLimitConfig{TrackWindow: time.Minute, TrackIPLimit: 1, CouponWindow: time.Minute, CouponLimit: 5},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubProvider, *prometheus.Registry) {
	t.Helper()
	store, err := cart.NewStore(noopCartAPI{}, noopCoupons{}, nil, nil)
	if err != nil {
		t.Fatalf("cart store: %v", err)
	}
	provider := &stubProvider{store: store}
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("info"), Output: io.Discard})

	router := NewRouter(testConfig(), logg, Services{
		Sessions: stubSessions{},
		Stores:   provider,
		Redis:    newMemRedis(),
		Orders:   stubTracker{},
		Gatherer: reg,
	})
	return router, provider, reg
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsExposesRegistry(t *testing.T) {
	router, _, reg := newTestRouter(t)
	metrics.NewCartMetrics(reg).IncMutation("add_item", "ok")

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cart_mutations_total") {
		t.Fatalf("expected cart metrics in output")
	}
}

func TestSessionIssuedOnFirstVisit(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.SessionHeader) != testSessionID {
		t.Fatalf("expected session header, got %q", rec.Header().Get(middleware.SessionHeader))
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected session cookie")
	}
}

func TestCartStateUsesGuestStores(t *testing.T) {
	router, provider, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/state", nil)
	req.Header.Set(middleware.SessionHeader, "1700000000001-ffff")

	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(provider.acquired) != 1 || provider.acquired[0] != "guest:1700000000001-ffff" {
		t.Fatalf("unexpected store keys %v", provider.acquired)
	}
	if !strings.Contains(rec.Body.String(), `"is_empty":true`) {
		t.Fatalf("expected empty cart state, got %s", rec.Body.String())
	}
}

func TestAddressesRequireSignedInUser(t *testing.T) {
	router, provider, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/addresses", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(provider.acquired) != 0 {
		t.Fatalf("guest must not reach address stores")
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"cash_on_delivery"}`))
	rec := serve(router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Idempotency-Key") {
		t.Fatalf("expected idempotency error, got %s", rec.Body.String())
	}
}

func TestOrderTrackRateLimitedPerIP(t *testing.T) {
	router, _, _ := newTestRouter(t)
	track := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/track/ORD-1?email=a@example.com", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		return serve(router, req)
	}

	if rec := track(); rec.Code != http.StatusOK {
		t.Fatalf("expected first lookup to pass, got %d", rec.Code)
	}
	rec := track()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v2/cart", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
