package cartdto

import (
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

type AddItemRequest struct {
	ItemableID   types.ID           `json:"itemable_id" validate:"required"`
	ItemableType enums.ItemableType `json:"itemable_type" validate:"omitempty,oneof=product bundle"`
	VariantID    types.ID           `json:"variant_id"`
	Quantity     int                `json:"quantity" validate:"required,min=1,max=999"`
}

// UpdateItemRequest sets an absolute quantity; zero or less removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type CouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
