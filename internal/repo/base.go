package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Base is embedded by the gorm-backed repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// MapError translates gorm and driver errors into typed errors. what names
// the record in the not-found and conflict messages.
func MapError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, what+" already exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query "+what)
	}
}
