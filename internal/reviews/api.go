package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/angelmondragon/storefront/pkg/validation"
)

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

// Review is a shopper's rating of a product. Only signed-in users may post.
type Review struct {
	ProductID types.ID `json:"product_id" validate:"required"`
	Rating    int      `json:"rating" validate:"min=1,max=5"`
	Comment   string   `json:"comment" validate:"max=2000"`
}

// Submitted is what the backend echoes back.
type Submitted struct {
	ID      types.ID `json:"id"`
	Status  string   `json:"status,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (a *API) Submit(ctx context.Context, r Review) (Submitted, error) {
	r.Comment = strings.TrimSpace(r.Comment)
	if err := validation.Struct(r); err != nil {
		return Submitted{}, err
	}
	raw, err := a.client.Do(ctx, backend.Request{Method: http.MethodPost, Path: "/review", Body: r})
	if err != nil {
		return Submitted{}, err
	}

	var out Submitted
	_ = json.Unmarshal(backend.Unwrap(raw), &out)
	if out.Message == "" {
		var top struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &top)
		out.Message = top.Message
	}
	return out, nil
}
