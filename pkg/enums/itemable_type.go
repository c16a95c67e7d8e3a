package enums

import "fmt"

// ItemableType is the kind of catalog entity a cart line points at.
type ItemableType string

const (
	ItemableTypeProduct ItemableType = "product"
	ItemableTypeBundle  ItemableType = "bundle"
)

var validItemableTypes = []ItemableType{
	ItemableTypeProduct,
	ItemableTypeBundle,
}

func (t ItemableType) String() string {
	return string(t)
}

func (t ItemableType) IsValid() bool {
	for _, candidate := range validItemableTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseItemableType(value string) (ItemableType, error) {
	if value == "" {
		return ItemableTypeProduct, nil
	}
	for _, candidate := range validItemableTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid itemable type %q", value)
}
