package cart

import (
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Cart is the server-authoritative cart as last seen by the storefront.
// Items keep the order the backend returned them in.
type Cart struct {
	Items        []Item       `json:"items"`
	Calculations Calculations `json:"calculations"`
}

// Calculations are always computed by the backend; the storefront never
// derives them from item quantities.
type Calculations struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	DeliveryFees    decimal.Decimal `json:"delivery_fees"`
	Discount        decimal.Decimal `json:"discount"`
	ProductDiscount decimal.Decimal `json:"product_discount"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	Addons          decimal.Decimal `json:"addons"`
	Total           decimal.Decimal `json:"total"`
}

type Item struct {
	ID           types.ID            `json:"id"`
	ItemableID   types.ID            `json:"itemable_id"`
	ItemableType enums.ItemableType  `json:"itemable_type"`
	Quantity     int                 `json:"quantity"`
	Variant      *Variant            `json:"variant,omitempty"`
	Name         types.LocalizedText `json:"name,omitempty"`
	Image        string              `json:"image,omitempty"`
}

// Variant is the priced SKU a cart line points at.
type Variant struct {
	ID                 types.ID            `json:"id"`
	SKU                string              `json:"sku,omitempty"`
	Name               types.LocalizedText `json:"name,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.Decimal     `json:"price_after_discount"`
	Discount           decimal.Decimal     `json:"discount"`
	DiscountType       string              `json:"discount_type,omitempty"`
	Stock              int                 `json:"stock"`
}

// EmptyCart is the skeleton used when the backend response cannot be read:
// no items and every calculation zero.
func EmptyCart() Cart {
	return Cart{Items: []Item{}, Calculations: Calculations{
		Subtotal:        decimal.Zero,
		Tax:             decimal.Zero,
		DeliveryFees:    decimal.Zero,
		Discount:        decimal.Zero,
		ProductDiscount: decimal.Zero,
		TotalDiscount:   decimal.Zero,
		Addons:          decimal.Zero,
		Total:           decimal.Zero,
	}}
}

// IsEmpty reports whether the cart has no lines or only zero quantities.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0 || c.TotalQuantity() <= 0
}

func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) indexOf(itemID types.ID) int {
	if c == nil {
		return -1
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindItem returns a copy of the line with the given id.
func (c *Cart) FindItem(itemID types.ID) (Item, bool) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return Item{}, false
	}
	return c.Items[idx].Clone(), true
}

// FindLine locates the line for an itemable/variant pair.
func (c *Cart) FindLine(itemableID types.ID, itemableType enums.ItemableType, variantID types.ID) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	for _, item := range c.Items {
		if item.ItemableID != itemableID || item.ItemableType != itemableType {
			continue
		}
		if item.variantID() == variantID {
			return item.Clone(), true
		}
	}
	return Item{}, false
}

// Clone returns a deep copy sharing no mutable state with c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{Calculations: c.Calculations}
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		for i, item := range c.Items {
			out.Items[i] = item.Clone()
		}
	}
	return out
}

func (i Item) Clone() Item {
	out := i
	out.Name = i.Name.Clone()
	if i.Variant != nil {
		v := *i.Variant
		v.Name = i.Variant.Name.Clone()
		out.Variant = &v
	}
	return out
}

// DisplayName picks the item name for locale, falling back to the variant name.
func (i Item) DisplayName(locale string) string {
	if name := i.Name.Get(locale); name != "" {
		return name
	}
	if i.Variant != nil {
		if name := i.Variant.Name.Get(locale); name != "" {
			return name
		}
	}
	return "item"
}

func (i Item) variantID() types.ID {
	if i.Variant == nil {
		return ""
	}
	return i.Variant.ID
}
