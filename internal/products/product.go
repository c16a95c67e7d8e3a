package products

import (
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry as the backend exposes it to shoppers.
type Product struct {
	ID                 types.ID            `json:"id"`
	Slug               string              `json:"slug,omitempty"`
	Name               types.LocalizedText `json:"name"`
	Description        types.LocalizedText `json:"description,omitempty"`
	Image              string              `json:"image,omitempty"`
	Images             []string            `json:"images,omitempty"`
	CategoryID         types.ID            `json:"category_id,omitempty"`
	BrandID            types.ID            `json:"brand_id,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.Decimal     `json:"price_after_discount"`
	Rating             decimal.Decimal     `json:"rating"`
	ReviewsCount       int                 `json:"reviews_count"`
	Variants           []Variant           `json:"variants,omitempty"`
}

type Variant struct {
	ID                 types.ID            `json:"id"`
	SKU                string              `json:"sku,omitempty"`
	Name               types.LocalizedText `json:"name,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.Decimal     `json:"price_after_discount"`
	Stock              int                 `json:"stock"`
}

// InStock reports whether any variant can still be ordered. Products without
// variants are assumed orderable.
func (p Product) InStock() bool {
	if len(p.Variants) == 0 {
		return true
	}
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}
