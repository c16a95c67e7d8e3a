package backend

import (
	"bytes"
	"encoding/json"

	"github.com/angelmondragon/storefront/pkg/types"
)

// Unwrap returns the "data" member of an enveloped payload, or raw itself
// when the backend answered with a bare document.
func Unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return raw
	}
	if data, ok := top["data"]; ok && !isNull(data) {
		return data
	}
	return raw
}

// DecodeData decodes the unwrapped payload into out.
func DecodeData(raw json.RawMessage, out any) error {
	return Decode(Unwrap(raw), out)
}

// DecodePage decodes a paginated list. The backend sends page numbers either
// in "meta" or at the top level next to "data".
func DecodePage(raw json.RawMessage, out any) (types.PageMeta, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
		Meta *types.PageMeta `json:"meta"`
		types.PageMeta
	}
	if err := Decode(raw, &envelope); err != nil {
		return types.PageMeta{}, err
	}
	if len(envelope.Data) == 0 || isNull(envelope.Data) {
		return types.PageMeta{}, Decode(json.RawMessage("[]"), out)
	}
	if err := Decode(envelope.Data, out); err != nil {
		return types.PageMeta{}, err
	}
	if envelope.Meta != nil {
		return *envelope.Meta, nil
	}
	return envelope.PageMeta, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
