package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

// API wraps the order tracking endpoint.
type API struct {
	client requester
}

func NewAPI(client requester) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &API{client: client}, nil
}

// Lookup proves ownership of an order: either the email it was placed with
// or the phone number together with its country.
type Lookup struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PhoneCountry string `json:"phone_country"`
}

func (l Lookup) query() (url.Values, error) {
	email := strings.TrimSpace(l.Email)
	phone := strings.TrimSpace(l.Phone)
	country := strings.TrimSpace(l.PhoneCountry)

	switch {
	case email != "" && (phone != "" || country != ""):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provide either email or phone, not both")
	case email != "":
		return url.Values{"email": {email}}, nil
	case phone != "" && country != "":
		return url.Values{"phone": {phone}, "phone_country": {country}}, nil
	case phone != "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone_country is required with phone").
			WithDetails(map[string]string{"phone_country": "is required"})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email or phone is required")
	}
}

// Track fetches an order by its public code.
func (a *API) Track(ctx context.Context, code string, lookup Lookup) (Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	params, err := lookup.query()
	if err != nil {
		return Order{}, err
	}

	raw, err := a.client.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/orders/code/" + url.PathEscape(code),
		Query:  params,
	})
	if err != nil {
		return Order{}, err
	}

	var order Order
	if err := backend.DecodeData(raw, &order); err != nil {
		return Order{}, err
	}
	if order.Code == "" && order.ID.IsZero() {
		return Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
