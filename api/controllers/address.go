package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/address"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type geoLookup interface {
	Cities(ctx context.Context) ([]address.City, error)
	Areas(ctx context.Context, cityID types.ID) ([]address.Area, error)
}

// AddressList refetches the signed-in user's addresses.
func AddressList(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := addressStore(w, r, logg)
		if !ok {
			return
		}
		if err := store.Fetch(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.Snapshot())
	}
}

func AddressCreate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := addressStore(w, r, logg)
		if !ok {
			return
		}
		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := store.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AddressUpdate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := addressStore(w, r, logg)
		if !ok {
			return
		}
		id, err := addressIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := store.Update(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AddressDelete(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := addressStore(w, r, logg)
		if !ok {
			return
		}
		id, err := addressIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AddressSelect picks the address checkout uses when none is given.
func AddressSelect(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := addressStore(w, r, logg)
		if !ok {
			return
		}
		id, err := addressIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(store.Snapshot().Addresses) == 0 {
			if err := store.Fetch(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if err := store.Select(id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.Snapshot())
	}
}

func Cities(geo geoLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		cities, err := geo.Cities(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cities)
	}
}

// Areas lists the delivery areas of ?city_id=, each with its delivery fee.
func Areas(geo geoLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		cityID, err := validators.ParseQueryID(r, "city_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cityID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "city_id is required"))
			return
		}
		areas, err := geo.Areas(r.Context(), types.ID(cityID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, areas)
	}
}

func addressStore(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*address.Store, bool) {
	stores, ok := middleware.StoresFromContext(r.Context())
	if !ok || stores.Address == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address store unavailable"))
		return nil, false
	}
	return stores.Address, true
}

func addressIDParam(r *http.Request) (types.ID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "addressId"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	return types.ID(raw), nil
}
