package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/storefront/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	cartsvc "github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Fetch reloads the cart from the backend. Optional city_id and area_id
// select the delivery area the totals are computed for.
func Fetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}

		cityID, err := validators.ParseQueryID(r, "city_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		areaID, err := validators.ParseQueryID(r, "area_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cityID != "" || areaID != "" {
			store.SetDeliveryArea(cityID, areaID)
		}

		if err := store.FetchCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

// State returns the current snapshot without calling the backend.
func State(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

// Sync refreshes the cart silently; failures keep the current snapshot.
func Sync(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		store.SyncCartSilently(r.Context())
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

func AddItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := store.AddItem(r.Context(), cartsvc.Mutation{
			ItemableID:   payload.ItemableID,
			ItemableType: payload.ItemableType,
			VariantID:    payload.VariantID,
			Quantity:     payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartdto.NewStateResponse(store.Snapshot()))
	}
}

func UpdateItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.UpdateItemQuantity(r.Context(), itemID, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

func RemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.RemoveItem(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

func ApplyCoupon(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}

		var payload cartdto.CouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.ApplyCoupon(r.Context(), payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

func ClearCoupon(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		if err := store.ClearCoupon(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewStateResponse(store.Snapshot()))
	}
}

// Clear resets the local mirror and the session coupon. The server cart is
// left untouched.
func Clear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(w, r, logg)
		if !ok {
			return
		}
		if err := store.ClearCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func storeFromRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*cartsvc.Store, bool) {
	stores, ok := middleware.StoresFromContext(r.Context())
	if !ok || stores.Cart == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
		return nil, false
	}
	return stores.Cart, true
}

func itemIDParam(r *http.Request) (types.ID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return types.ID(raw), nil
}
