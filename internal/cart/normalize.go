package cart

import (
	"bytes"
	"encoding/json"
)

// Shape names the envelope a cart response arrived in.
type Shape string

const (
	ShapeEnvelope     Shape = "envelope"
	ShapeBare         Shape = "bare"
	ShapeUnrecognized Shape = "unrecognized"
)

// Normalize is the single place the backend's cart envelope is interpreted.
// It accepts {"data": Cart} or a bare Cart and falls back to EmptyCart for
// anything else; it never fails.
func Normalize(raw json.RawMessage) (Cart, Shape) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return EmptyCart(), ShapeUnrecognized
	}

	if data, ok := top["data"]; ok {
		if cart, ok := decodeCart(data); ok {
			return cart, ShapeEnvelope
		}
	}
	if _, ok := top["items"]; ok {
		if cart, ok := decodeCart(raw); ok {
			return cart, ShapeBare
		}
	}
	return EmptyCart(), ShapeUnrecognized
}

func decodeCart(raw json.RawMessage) (Cart, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Cart{}, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Cart{}, false
	}
	if _, ok := probe["items"]; !ok {
		return Cart{}, false
	}

	cart := EmptyCart()
	if err := json.Unmarshal(trimmed, &cart); err != nil {
		return Cart{}, false
	}
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	return cart, true
}
