package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	cartsvc "github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
)

type stubCartAPI struct {
	cart      cartsvc.Cart
	getErr    error
	mutateErr error
	queries   []cartsvc.Query
	mutations []cartsvc.Mutation
}

func (s *stubCartAPI) GetCart(ctx context.Context, q cartsvc.Query) (cartsvc.Cart, error) {
	s.queries = append(s.queries, q)
	if s.getErr != nil {
		return cartsvc.Cart{}, s.getErr
	}
	return *s.cart.Clone(), nil
}

func (s *stubCartAPI) AddOrUpdate(ctx context.Context, m cartsvc.Mutation) error {
	s.mutations = append(s.mutations, m)
	return s.mutateErr
}

func (s *stubCartAPI) Remove(ctx context.Context, itemID, itemableID types.ID, itemableType enums.ItemableType, couponCode *string) error {
	return s.mutateErr
}

type stubCoupons struct {
	code string
}

func (s *stubCoupons) Get(ctx context.Context) (string, bool, error) { return s.code, s.code != "", nil }
func (s *stubCoupons) Set(ctx context.Context, code string) error   { s.code = code; return nil }
func (s *stubCoupons) Clear(ctx context.Context) error              { s.code = ""; return nil }

func oneLineCart(qty int) cartsvc.Cart {
	return cartsvc.Cart{
		Items: []cartsvc.Item{{
			ID:           "1",
			ItemableID:   "10",
			ItemableType: enums.ItemableTypeProduct,
			Quantity:     qty,
			Name:         types.LocalizedText{"en": "Mug"},
			Variant:      &cartsvc.Variant{ID: "5", Price: decimal.NewFromInt(20)},
		}},
		Calculations: cartsvc.Calculations{
			Subtotal: decimal.NewFromInt(int64(20 * qty)),
			Total:    decimal.NewFromInt(int64(20 * qty)),
		},
	}
}

func newTestRouter(t *testing.T, api *stubCartAPI, coupons *stubCoupons) http.Handler {
	t.Helper()
	store, err := cartsvc.NewStore(api, coupons, nil, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	stores := &storefront.Stores{Key: "guest:1", Cart: store}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithStores(req.Context(), stores)))
		})
	})
	r.Get("/cart", Fetch(nil))
	r.Get("/cart/state", State(nil))
	r.Post("/cart/items", AddItem(nil))
	r.Put("/cart/items/{itemId}", UpdateItem(nil))
	r.Delete("/cart/items/{itemId}", RemoveItem(nil))
	r.Post("/cart/coupon", ApplyCoupon(nil))
	r.Delete("/cart/coupon", ClearCoupon(nil))
	r.Delete("/cart", Clear(nil))
	return r
}

type stateEnvelope struct {
	Data struct {
		Cart          *cartsvc.Cart `json:"cart"`
		Error         *string       `json:"error"`
		AppliedCoupon *string       `json:"applied_coupon"`
		ItemCount     int           `json:"item_count"`
		TotalQuantity int           `json:"total_quantity"`
		IsEmpty       bool          `json:"is_empty"`
	} `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateEnvelope {
	t.Helper()
	var env stateEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestFetchReturnsSnapshotAndDeliveryArea(t *testing.T) {
	api := &stubCartAPI{cart: oneLineCart(2)}
	h := newTestRouter(t, api, &stubCoupons{})

	rec := do(t, h, http.MethodGet, "/cart?city_id=3&area_id=9", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeState(t, rec)
	if env.Data.ItemCount != 1 || env.Data.TotalQuantity != 2 || env.Data.IsEmpty {
		t.Fatalf("unexpected counters %+v", env.Data)
	}
	if len(api.queries) != 1 || api.queries[0].CityID != "3" || api.queries[0].AreaID != "9" {
		t.Fatalf("expected delivery area forwarded, got %+v", api.queries)
	}
}

func TestFetchRejectsBadAreaID(t *testing.T) {
	h := newTestRouter(t, &stubCartAPI{cart: oneLineCart(1)}, &stubCoupons{})

	rec := do(t, h, http.MethodGet, "/cart?area_id=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateItemRollsBackOnFailure(t *testing.T) {
	api := &stubCartAPI{cart: oneLineCart(2)}
	h := newTestRouter(t, api, &stubCoupons{})
	if rec := do(t, h, http.MethodGet, "/cart", ""); rec.Code != http.StatusOK {
		t.Fatalf("fetch failed: %d", rec.Code)
	}

	api.mutateErr = pkgerrors.Wrap(pkgerrors.CodeDependency, &backend.APIError{Status: http.StatusBadGateway, Message: "Out of stock"}, "Out of stock")
	rec := do(t, h, http.MethodPut, "/cart/items/1", `{"quantity":5}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}

	state := decodeState(t, do(t, h, http.MethodGet, "/cart/state", ""))
	if state.Data.Cart == nil || state.Data.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity restored to 2, got %+v", state.Data.Cart)
	}
	if state.Data.Error == nil || *state.Data.Error != "Out of stock" {
		t.Fatalf("expected error message kept, got %v", state.Data.Error)
	}
}

func TestUpdateItemRequiresQuantity(t *testing.T) {
	h := newTestRouter(t, &stubCartAPI{cart: oneLineCart(1)}, &stubCoupons{})

	rec := do(t, h, http.MethodPut, "/cart/items/1", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddItemCreatesLine(t *testing.T) {
	api := &stubCartAPI{cart: oneLineCart(1)}
	h := newTestRouter(t, api, &stubCoupons{})

	rec := do(t, h, http.MethodPost, "/cart/items", `{"itemable_id":10,"variant_id":6,"quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(api.mutations) != 1 || api.mutations[0].ItemableType != enums.ItemableTypeProduct {
		t.Fatalf("expected one product mutation, got %+v", api.mutations)
	}
}

func TestAddItemRejectsUnknownType(t *testing.T) {
	h := newTestRouter(t, &stubCartAPI{}, &stubCoupons{})

	rec := do(t, h, http.MethodPost, "/cart/items", `{"itemable_id":10,"itemable_type":"gift","quantity":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApplyAndClearCoupon(t *testing.T) {
	coupons := &stubCoupons{}
	h := newTestRouter(t, &stubCartAPI{cart: oneLineCart(1)}, coupons)

	rec := do(t, h, http.MethodPost, "/cart/coupon", `{"code":" SAVE10 "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeState(t, rec)
	if env.Data.AppliedCoupon == nil || *env.Data.AppliedCoupon != "SAVE10" || coupons.code != "SAVE10" {
		t.Fatalf("expected coupon applied, got %v / %q", env.Data.AppliedCoupon, coupons.code)
	}

	rec = do(t, h, http.MethodDelete, "/cart/coupon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env := decodeState(t, rec); env.Data.AppliedCoupon != nil || coupons.code != "" {
		t.Fatalf("expected coupon cleared")
	}
}

func TestClearIsLocal(t *testing.T) {
	api := &stubCartAPI{cart: oneLineCart(1)}
	h := newTestRouter(t, api, &stubCoupons{code: "X"})
	do(t, h, http.MethodGet, "/cart", "")

	rec := do(t, h, http.MethodDelete, "/cart", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(api.mutations) != 0 {
		t.Fatalf("expected no backend mutation")
	}
	if env := decodeState(t, do(t, h, http.MethodGet, "/cart/state", "")); env.Data.Cart != nil {
		t.Fatalf("expected empty local state")
	}
}

func TestHandlersRequireStores(t *testing.T) {
	rec := httptest.NewRecorder()
	State(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/state", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUpdateItemReachesBackendBeforeFirstFetch(t *testing.T) {
	api := &stubCartAPI{cart: oneLineCart(2)}
	h := newTestRouter(t, api, &stubCoupons{})

	rec := do(t, h, http.MethodPut, "/cart/items/1", `{"quantity":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(api.mutations) != 1 || api.mutations[0].Quantity != 5 {
		t.Fatalf("expected quantity 5 sent upstream, got %+v", api.mutations)
	}
	if env := decodeState(t, rec); env.Data.Cart == nil {
		t.Fatalf("expected cart in response, got %s", rec.Body.String())
	}
}
