package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/internal/address"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/coupon"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/multierr"
)

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type addressAPI interface {
	List(ctx context.Context) ([]address.Address, error)
	Create(ctx context.Context, in address.Input) (address.Address, error)
	Update(ctx context.Context, id types.ID, in address.Input) (address.Address, error)
	Delete(ctx context.Context, id types.ID) error
}

// Stores is the state owned by one storefront session.
type Stores struct {
	Key     string
	Cart    *cart.Store
	Address *address.Store
}

// Deps are the shared collaborators every session's stores are built from.
type Deps struct {
	Backend     requester
	Coupons     *coupon.Store
	Addresses   addressAPI
	CartMetrics *metrics.CartMetrics
}

// Provider hands out the per-session stores. Sessions idle for longer than
// the configured TTL are dropped and rebuilt on next use; the applied coupon
// survives in Redis.
type Provider struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Stores]
	deps  Deps
	logg  *logger.Logger
}

func NewProvider(deps Deps, cfg config.SessionConfig, logg *logger.Logger) (*Provider, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon store required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("address api required")
	}
	size := cfg.MaxStores
	if size <= 0 {
		size = 10000
	}

	p := &Provider{deps: deps, logg: logg}
	p.cache = expirable.NewLRU[string, *Stores](size, p.onEvict, cfg.StoreIdleTTL)
	return p, nil
}

// Acquire returns the stores for key, building them on first use.
func (p *Provider) Acquire(ctx context.Context, key string) (*Stores, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session key is required")
	}

	p.mu.Lock()
	if existing, ok := p.cache.Get(key); ok {
		p.cache.Add(key, existing)
		p.mu.Unlock()
		return existing, nil
	}
	p.mu.Unlock()

	built, err := p.build(key)
	if err != nil {
		return nil, err
	}
	if err := built.Cart.RestoreCoupon(ctx); err != nil && p.logg != nil {
		p.logg.WarnErr(ctx, "storefront.coupon.restore_failed", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache.Get(key); ok {
		p.cache.Add(key, existing)
		return existing, nil
	}
	p.cache.Add(key, built)
	return built, nil
}

// Reset clears the session's cart, coupon and addresses and forgets its
// stores, e.g. on logout.
func (p *Provider) Reset(ctx context.Context, key string) error {
	p.mu.Lock()
	stores, ok := p.cache.Peek(key)
	p.cache.Remove(key)
	p.mu.Unlock()

	var errs error
	if ok {
		errs = multierr.Append(errs, stores.Cart.ClearCart(ctx))
		stores.Address.Reset()
	} else {
		errs = multierr.Append(errs, p.deps.Coupons.ForSession(key).Clear(ctx))
	}
	return errs
}

// Len reports how many sessions currently hold stores.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// Purge drops every session's stores.
func (p *Provider) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Purge()
}

func (p *Provider) build(key string) (*Stores, error) {
	coupons := p.deps.Coupons.ForSession(key)

	cartAPI, err := cart.NewAPI(p.deps.Backend, coupons, p.logg, p.deps.CartMetrics)
	if err != nil {
		return nil, err
	}
	cartStore, err := cart.NewStore(cartAPI, coupons, p.logg, p.deps.CartMetrics)
	if err != nil {
		return nil, err
	}
	addressStore, err := address.NewStore(p.deps.Addresses, p.logg)
	if err != nil {
		return nil, err
	}
	return &Stores{Key: key, Cart: cartStore, Address: addressStore}, nil
}

func (p *Provider) onEvict(key string, _ *Stores) {
	if p.logg != nil {
		p.logg.Debug(p.logg.WithField(context.Background(), "session_key", key), "storefront.stores.evicted")
	}
}
