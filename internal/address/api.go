package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/phone"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const addressesPath = "/addresses"

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

// API wraps the address, city and area endpoints.
type API struct {
	client           requester
	defaultCountryID string
}

func NewAPI(client requester, defaultCountryID string) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &API{client: client, defaultCountryID: defaultCountryID}, nil
}

func (a *API) List(ctx context.Context) ([]Address, error) {
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodGet, Path: addressesPath})
	if err != nil {
		return nil, err
	}
	var list []Address
	if err := backend.DecodeData(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []Address{}
	}
	return list, nil
}

// Create saves a new address. The returned Address is zero when the backend
// does not echo it back.
func (a *API) Create(ctx context.Context, in Input) (Address, error) {
	body, err := a.body(in)
	if err != nil {
		return Address{}, err
	}
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodPost, Path: addressesPath, Body: body})
	if err != nil {
		return Address{}, err
	}
	return decodeOptional(raw), nil
}

func (a *API) Update(ctx context.Context, id types.ID, in Input) (Address, error) {
	if id.IsZero() {
		return Address{}, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	body, err := a.body(in)
	if err != nil {
		return Address{}, err
	}
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodPut, Path: addressPath(id), Body: body})
	if err != nil {
		return Address{}, err
	}
	return decodeOptional(raw), nil
}

func (a *API) Delete(ctx context.Context, id types.ID) error {
	if id.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	_, err := a.client.Do(ctx, backend.Request{Method: http.MethodDelete, Path: addressPath(id)})
	return err
}

func (a *API) Cities(ctx context.Context) ([]City, error) {
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodGet, Path: "/city"})
	if err != nil {
		return nil, err
	}
	var cities []City
	if err := backend.DecodeData(raw, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

func (a *API) Areas(ctx context.Context, cityID types.ID) ([]Area, error) {
	if cityID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city_id is required").
			WithDetails(map[string]string{"city_id": "is required"})
	}
	raw, err := a.client.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/area",
		Query:  url.Values{"city_id": {cityID.String()}},
	})
	if err != nil {
		return nil, err
	}
	var areas []Area
	if err := backend.DecodeData(raw, &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

func (a *API) body(in Input) (requestBody, error) {
	if err := validation.Struct(in); err != nil {
		return requestBody{}, err
	}
	number, err := phone.Normalize(in.PhoneCode, in.Phone)
	if err != nil {
		return requestBody{}, err
	}
	countryID := in.CountryID
	if countryID.IsZero() {
		countryID = types.ID(a.defaultCountryID)
	}
	return requestBody{
		Title:        strings.TrimSpace(in.Title),
		CountryID:    countryID,
		CityID:       in.CityID,
		AreaID:       in.AreaID,
		Details:      strings.TrimSpace(in.Details),
		Zipcode:      strings.TrimSpace(in.Zipcode),
		Email:        strings.TrimSpace(in.Email),
		Phone:        number.E164,
		PhoneCountry: number.ISO2,
		IsDefault:    in.IsDefault,
	}, nil
}

func addressPath(id types.ID) string {
	return addressesPath + "/" + url.PathEscape(id.String())
}

func decodeOptional(raw json.RawMessage) Address {
	var addr Address
	if err := json.Unmarshal(backend.Unwrap(raw), &addr); err != nil {
		return Address{}
	}
	return addr
}
