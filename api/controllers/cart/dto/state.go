package cartdto

import "github.com/angelmondragon/storefront/internal/cart"

// StateResponse is the cart store snapshot plus derived counters.
type StateResponse struct {
	cart.State
	ItemCount     int  `json:"item_count"`
	TotalQuantity int  `json:"total_quantity"`
	IsEmpty       bool `json:"is_empty"`
}

func NewStateResponse(state cart.State) StateResponse {
	resp := StateResponse{State: state, IsEmpty: state.Cart.IsEmpty()}
	if state.Cart != nil {
		resp.ItemCount = len(state.Cart.Items)
		resp.TotalQuantity = state.Cart.TotalQuantity()
	}
	return resp
}
