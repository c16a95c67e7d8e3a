package products

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Sort orders accepted by the backend listing.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortTopRated  = "top_rated"
)

var validSorts = map[string]struct{}{
	SortNewest:    {},
	SortPriceAsc:  {},
	SortPriceDesc: {},
	SortTopRated:  {},
}

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type API struct {
	client requester
}

func NewAPI(client requester) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &API{client: client}, nil
}

// Filter narrows a product listing. Zero values are not sent.
type Filter struct {
	Search     string
	CategoryID types.ID
	BrandID    types.ID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Page       pagination.Params
}

func (f Filter) query() (url.Values, error) {
	q := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if !f.CategoryID.IsZero() {
		q.Set("category_id", f.CategoryID.String())
	}
	if !f.BrandID.IsZero() {
		q.Set("brand_id", f.BrandID.String())
	}
	if f.MinPrice != nil {
		if f.MinPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not be negative")
		}
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		if f.MinPrice != nil && f.MaxPrice.LessThan(*f.MinPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_price must not be below min_price")
		}
		q.Set("max_price", f.MaxPrice.String())
	}
	if f.Sort != "" {
		if _, ok := validSorts[f.Sort]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sort %q", f.Sort))
		}
		q.Set("sort", f.Sort)
	}
	f.Page.Apply(q)
	return q, nil
}

// List returns one page of products.
func (a *API) List(ctx context.Context, f Filter) ([]Product, types.PageMeta, error) {
	q, err := f.query()
	if err != nil {
		return nil, types.PageMeta{}, err
	}
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodGet, Path: "/products", Query: q})
	if err != nil {
		return nil, types.PageMeta{}, err
	}

	var list []Product
	meta, err := backend.DecodePage(raw, &list)
	if err != nil {
		return nil, types.PageMeta{}, err
	}
	return list, pagination.Meta(meta, f.Page), nil
}

func (a *API) Get(ctx context.Context, id types.ID) (Product, error) {
	if id.IsZero() {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	raw, err := a.client.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/products/" + url.PathEscape(id.String()),
	})
	if err != nil {
		return Product{}, err
	}
	var p Product
	if err := backend.DecodeData(raw, &p); err != nil {
		return Product{}, err
	}
	if p.ID.IsZero() {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}
