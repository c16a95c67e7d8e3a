package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/phone"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// CartRedirect is where the shopper is sent when checkout is refused for an
// empty cart.
const CartRedirect = "/cart"

// Input is what the shopper submits. AddressID selects a saved address; when
// it is empty Address must carry the delivery details inline.
type Input struct {
	AddressID     types.ID            `json:"address_id"`
	Address       *InlineAddress      `json:"address" validate:"-"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	CouponCode    string              `json:"coupon_code" validate:"max=64"`
}

// InlineAddress is a guest or one-off delivery address. PhoneCode is the
// calling code the phone number belongs to, without "+".
type InlineAddress struct {
	Title     string   `json:"address_title" validate:"required,max=120"`
	CountryID string   `json:"country_id"`
	CityID    types.ID `json:"city_id" validate:"required"`
	AreaID    types.ID `json:"area_id" validate:"required"`
	Details   string   `json:"address_details" validate:"required,max=500"`
	Zipcode   string   `json:"zipcode" validate:"max=20"`
	Location  string   `json:"location" validate:"max=255"`
	UserName  string   `json:"user_name" validate:"required,max=120"`
	PhoneCode string   `json:"phone_code" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Email     string   `json:"email" validate:"omitempty,email"`
}

// Payload is the body of POST /orders/checkout. Exactly one of AddressID or
// the inline address block is populated.
type Payload struct {
	AddressID types.ID `json:"address_id,omitempty"`

	AddressTitle   string   `json:"address_title,omitempty"`
	CountryID      string   `json:"country_id,omitempty"`
	CityID         types.ID `json:"city_id,omitempty"`
	AreaID         types.ID `json:"area_id,omitempty"`
	AddressDetails string   `json:"address_details,omitempty"`
	Zipcode        string   `json:"zipcode,omitempty"`
	Location       string   `json:"location,omitempty"`
	UserName       string   `json:"user_name,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	PhoneCountry   string   `json:"phone_country,omitempty"`
	Email          string   `json:"email,omitempty"`

	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	SessionID     string              `json:"session_id,omitempty"`
}

// Buyer identifies who is checking out. Guests carry their session id so
// the backend can find the anonymous cart.
type Buyer struct {
	Guest     bool
	SessionID string
}

// BuildPayload assembles the checkout request.
func BuildPayload(in Input, buyer Buyer, defaultCountryID string) (Payload, error) {
	if err := validation.Struct(in); err != nil {
		return Payload{}, err
	}
	if !in.PaymentMethod.IsValid() {
		return Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"payment_method": "is not supported"})
	}

	p := Payload{
		PaymentMethod: in.PaymentMethod,
		CouponCode:    strings.TrimSpace(in.CouponCode),
	}

	if buyer.Guest {
		if strings.TrimSpace(buyer.SessionID) == "" {
			return Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required for guest checkout")
		}
		p.SessionID = buyer.SessionID
	}

	if !in.AddressID.IsZero() {
		if buyer.Guest {
			return Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "saved addresses require sign in").
				WithDetails(map[string]string{"address_id": "is not allowed for guests"})
		}
		p.AddressID = in.AddressID
		return p, nil
	}

	if in.Address == nil {
		return Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "an address is required").
			WithDetails(map[string]string{"address": "is required"})
	}
	addr := *in.Address
	if err := validation.Struct(addr); err != nil {
		return Payload{}, err
	}
	number, err := phone.Normalize(addr.PhoneCode, addr.Phone)
	if err != nil {
		return Payload{}, err
	}

	countryID := strings.TrimSpace(addr.CountryID)
	if countryID == "" {
		countryID = defaultCountryID
	}

	p.AddressTitle = strings.TrimSpace(addr.Title)
	p.CountryID = countryID
	p.CityID = addr.CityID
	p.AreaID = addr.AreaID
	p.AddressDetails = strings.TrimSpace(addr.Details)
	p.Zipcode = strings.TrimSpace(addr.Zipcode)
	p.Location = strings.TrimSpace(addr.Location)
	p.UserName = strings.TrimSpace(addr.UserName)
	p.Phone = number.E164
	p.PhoneCountry = number.ISO2
	p.Email = strings.TrimSpace(addr.Email)
	return p, nil
}

// ValidateCart refuses checkout for a cart with no lines or no quantity.
// The backend enforces the same rule; this only saves the round trip.
func ValidateCart(c *cart.Cart) error {
	if c == nil || len(c.Items) == 0 || c.TotalQuantity() <= 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty").
			WithDetails(map[string]any{"redirect": CartRedirect})
	}
	return nil
}
