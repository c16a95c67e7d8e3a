package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/reviews"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/types"
)

type productCatalog interface {
	List(ctx context.Context, f products.Filter) ([]products.Product, types.PageMeta, error)
	Get(ctx context.Context, id types.ID) (products.Product, error)
}

type reviewSubmitter interface {
	Submit(ctx context.Context, r reviews.Review) (reviews.Submitted, error)
}

// ProductList proxies the catalog listing with normalized paging.
func ProductList(catalog productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product catalog unavailable"))
			return
		}
		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, meta, err := catalog.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []products.Product{}
		}
		responses.WriteSuccessPage(w, list, &meta)
	}
}

func ProductGet(catalog productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product catalog unavailable"))
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "productId"))
		product, err := catalog.Get(r.Context(), types.ID(id))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ReviewSubmit posts a product review for the signed-in user.
func ReviewSubmit(api reviewSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews unavailable"))
			return
		}
		var payload reviews.Review
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submitted, err := api.Submit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitted)
	}
}

func parseProductFilter(r *http.Request) (products.Filter, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return products.Filter{}, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage, 1, pagination.MaxPerPage)
	if err != nil {
		return products.Filter{}, err
	}
	categoryID, err := validators.ParseQueryID(r, "category_id")
	if err != nil {
		return products.Filter{}, err
	}
	brandID, err := validators.ParseQueryID(r, "brand_id")
	if err != nil {
		return products.Filter{}, err
	}
	minPrice, err := parseQueryDecimal(r, "min_price")
	if err != nil {
		return products.Filter{}, err
	}
	maxPrice, err := parseQueryDecimal(r, "max_price")
	if err != nil {
		return products.Filter{}, err
	}

	return products.Filter{
		Search:     validators.SanitizeString(r.URL.Query().Get("search"), 120),
		CategoryID: types.ID(categoryID),
		BrandID:    types.ID(brandID),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       strings.TrimSpace(r.URL.Query().Get("sort")),
		Page:       pagination.Params{Page: page, PerPage: perPage},
	}, nil
}

func parseQueryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a number").
			WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}
