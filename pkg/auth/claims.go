package auth

import (
	"strings"

	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims is the subset of the backend's access token the storefront reads.
// user_id may be a string or a number; sub is the fallback.
type BearerClaims struct {
	UserID types.ID `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func (c BearerClaims) userID() string {
	if !c.UserID.IsZero() {
		return c.UserID.String()
	}
	return strings.TrimSpace(c.Subject)
}
