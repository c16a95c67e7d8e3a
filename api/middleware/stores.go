package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const ctxStores contextKey = "storefront_stores"

type storesProvider interface {
	Acquire(ctx context.Context, key string) (*storefront.Stores, error)
}

// SessionStores attaches the caller's cart and address stores. It must run
// after Sessions.
func SessionStores(provider storesProvider, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, ok := SessionFromContext(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
				return
			}
			stores, err := provider.Acquire(ctx, sess.Key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxStores, stores)))
		})
	}
}

func StoresFromContext(ctx context.Context) (*storefront.Stores, bool) {
	if ctx == nil {
		return nil, false
	}
	stores, ok := ctx.Value(ctxStores).(*storefront.Stores)
	return stores, ok && stores != nil
}

// WithStores injects stores directly, for handlers exercised without the provider.
func WithStores(ctx context.Context, stores *storefront.Stores) context.Context {
	return context.WithValue(ctx, ctxStores, stores)
}
