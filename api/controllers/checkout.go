package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Checkout places an order for the caller's cart. Signed-in users who send
// neither address_id nor an inline address check out with their selected
// address.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sess, ok := middleware.SessionFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}
		stores, ok := middleware.StoresFromContext(ctx)
		if !ok || stores.Cart == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		var payload checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if payload.AddressID.IsZero() && payload.Address == nil && !sess.Guest() && stores.Address != nil {
			if selected, found := stores.Address.Selected(); found {
				payload.AddressID = selected.ID
			}
		}

		result, err := svc.Checkout(ctx, checkoutsvc.Session{
			Key:   sess.Key,
			Buyer: checkoutsvc.Buyer{Guest: sess.Guest(), SessionID: sess.SessionID},
			Cart:  stores.Cart,
		}, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
