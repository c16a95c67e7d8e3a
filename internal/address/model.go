package address

import (
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Address is a saved delivery address owned by the signed-in user.
type Address struct {
	ID           types.ID `json:"id"`
	Title        string   `json:"title"`
	CountryID    types.ID `json:"country_id"`
	CityID       types.ID `json:"city_id"`
	AreaID       types.ID `json:"area_id"`
	City         *City    `json:"city,omitempty"`
	Area         *Area    `json:"area,omitempty"`
	Details      string   `json:"details"`
	Zipcode      string   `json:"zipcode,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone"`
	PhoneCountry string   `json:"phone_country,omitempty"`
	IsDefault    bool     `json:"is_default"`
}

type City struct {
	ID   types.ID            `json:"id"`
	Name types.LocalizedText `json:"name"`
}

// Area is a delivery zone inside a city.
type Area struct {
	ID          types.ID            `json:"id"`
	CityID      types.ID            `json:"city_id"`
	Name        types.LocalizedText `json:"name"`
	DeliveryFee decimal.Decimal     `json:"delivery_fee"`
}

// Input creates or replaces an address. PhoneCode is the calling code the
// phone number belongs to.
type Input struct {
	Title     string   `json:"title" validate:"required,max=120"`
	CountryID types.ID `json:"country_id"`
	CityID    types.ID `json:"city_id" validate:"required"`
	AreaID    types.ID `json:"area_id" validate:"required"`
	Details   string   `json:"details" validate:"required,max=500"`
	Zipcode   string   `json:"zipcode" validate:"max=20"`
	Email     string   `json:"email" validate:"omitempty,email"`
	PhoneCode string   `json:"phone_code" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	IsDefault bool     `json:"is_default"`
}

type requestBody struct {
	Title        string   `json:"title"`
	CountryID    types.ID `json:"country_id,omitempty"`
	CityID       types.ID `json:"city_id"`
	AreaID       types.ID `json:"area_id"`
	Details      string   `json:"details"`
	Zipcode      string   `json:"zipcode,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone"`
	PhoneCountry string   `json:"phone_country"`
	IsDefault    bool     `json:"is_default"`
}

func (a Address) clone() Address {
	out := a
	if a.City != nil {
		c := *a.City
		c.Name = a.City.Name.Clone()
		out.City = &c
	}
	if a.Area != nil {
		ar := *a.Area
		ar.Name = a.Area.Name.Clone()
		out.Area = &ar
	}
	return out
}
