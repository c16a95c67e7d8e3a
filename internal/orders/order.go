package orders

import (
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Order is the backend's order document. Item names and prices are copies
// taken when the order was placed and do not follow the live catalog.
type Order struct {
	ID            types.ID            `json:"id"`
	Code          string              `json:"code"`
	Status        string              `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus string              `json:"payment_status,omitempty"`
	Items         []Item              `json:"items"`
	Address       *Address            `json:"address,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFees  decimal.Decimal     `json:"delivery_fees"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
}

type Item struct {
	ID          types.ID            `json:"id"`
	ItemableID  types.ID            `json:"itemable_id"`
	Name        types.LocalizedText `json:"name,omitempty"`
	VariantName types.LocalizedText `json:"variant_name,omitempty"`
	Quantity    int                 `json:"quantity"`
	Price       decimal.Decimal     `json:"price"`
	Total       decimal.Decimal     `json:"total"`
}

// Address is the delivery address as recorded on the order.
type Address struct {
	Title    string `json:"title,omitempty"`
	City     string `json:"city,omitempty"`
	Area     string `json:"area,omitempty"`
	Details  string `json:"details,omitempty"`
	Phone    string `json:"phone,omitempty"`
	UserName string `json:"user_name,omitempty"`
}
