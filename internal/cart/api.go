package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

const cartPath = "/cart"

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

// CouponSession is the per-session slot holding the applied coupon code.
type CouponSession interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, code string) error
	Clear(ctx context.Context) error
}

// API maps the backend cart endpoints. The backend keeps no record of the
// active coupon, so every call re-sends the session coupon unless the caller
// passes one explicitly.
type API struct {
	client  requester
	coupons CouponSession
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

func NewAPI(client requester, coupons CouponSession, logg *logger.Logger, m *metrics.CartMetrics) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon session required")
	}
	return &API{client: client, coupons: coupons, logg: logg, metrics: m}, nil
}

// Query selects the delivery area totals are computed for. A nil CouponCode
// means "use the session coupon"; a pointer to "" means "no coupon".
type Query struct {
	CityID     string
	AreaID     string
	CouponCode *string
}

// Mutation sets the absolute quantity of an itemable/variant line.
type Mutation struct {
	ItemableID   types.ID           `json:"itemable_id" validate:"required"`
	ItemableType enums.ItemableType `json:"itemable_type"`
	Quantity     int                `json:"quantity" validate:"min=1,max=999"`
	VariantID    types.ID           `json:"variant_id,omitempty"`
	CouponCode   *string            `json:"-"`
}

type mutationBody struct {
	ItemableID   types.ID           `json:"itemable_id"`
	ItemableType enums.ItemableType `json:"itemable_type"`
	Quantity     int                `json:"quantity"`
	VariantID    types.ID           `json:"variant_id,omitempty"`
	CouponCode   string             `json:"coupon_code,omitempty"`
}

// GetCart fetches and normalizes the cart.
func (a *API) GetCart(ctx context.Context, q Query) (Cart, error) {
	params := url.Values{}
	if q.CityID != "" {
		params.Set("city_id", q.CityID)
	}
	if q.AreaID != "" {
		params.Set("area_id", q.AreaID)
	}
	if code := a.resolveCoupon(ctx, q.CouponCode); code != "" {
		params.Set("coupon_code", code)
	}

	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodGet, Path: cartPath, Query: params})
	if err != nil {
		return Cart{}, err
	}
	return a.normalize(ctx, raw), nil
}

// AddOrUpdate posts the absolute quantity for a line.
func (a *API) AddOrUpdate(ctx context.Context, m Mutation) error {
	itemableType := m.ItemableType
	if itemableType == "" {
		itemableType = enums.ItemableTypeProduct
	}
	body := mutationBody{
		ItemableID:   m.ItemableID,
		ItemableType: itemableType,
		Quantity:     m.Quantity,
		VariantID:    m.VariantID,
		CouponCode:   a.resolveCoupon(ctx, m.CouponCode),
	}
	_, err := a.client.Do(ctx, backend.Request{Method: http.MethodPost, Path: cartPath, Body: body})
	return err
}

// Remove deletes a cart line.
func (a *API) Remove(ctx context.Context, itemID types.ID, itemableID types.ID, itemableType enums.ItemableType, couponCode *string) error {
	if itemID.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	params := url.Values{}
	if !itemableID.IsZero() {
		params.Set("itemable_id", itemableID.String())
	}
	if itemableType != "" {
		params.Set("itemable_type", itemableType.String())
	}
	if code := a.resolveCoupon(ctx, couponCode); code != "" {
		params.Set("coupon_code", code)
	}
	path := cartPath + "/" + url.PathEscape(itemID.String())
	_, err := a.client.Do(ctx, backend.Request{Method: http.MethodDelete, Path: path, Query: params})
	return err
}

func (a *API) resolveCoupon(ctx context.Context, explicit *string) string {
	if explicit != nil {
		return strings.TrimSpace(*explicit)
	}
	code, ok, err := a.coupons.Get(ctx)
	if err != nil {
		if a.logg != nil {
			a.logg.WarnErr(ctx, "cart.coupon.lookup_failed", err)
		}
		return ""
	}
	if !ok {
		return ""
	}
	return code
}

func (a *API) normalize(ctx context.Context, raw json.RawMessage) Cart {
	cart, shape := Normalize(raw)
	if shape == ShapeUnrecognized {
		a.metrics.IncUnrecognizedShape()
		if a.logg != nil {
			a.logg.Warn(a.logg.WithField(ctx, "body_bytes", len(raw)), "cart.response.unrecognized_shape")
		}
	}
	return cart
}
