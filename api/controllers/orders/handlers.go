package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	internalorders "github.com/angelmondragon/storefront/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type tracker interface {
	Track(ctx context.Context, code string, lookup internalorders.Lookup) (internalorders.Order, error)
}

// Track looks an order up by code. The caller proves ownership with
// ?email= or ?phone=&phone_country=.
func Track(api tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order tracking unavailable"))
			return
		}
		code := validators.SanitizeString(chi.URLParam(r, "code"), 64)
		q := r.URL.Query()
		lookup := internalorders.Lookup{
			Email:        validators.SanitizeString(q.Get("email"), 254),
			Phone:        validators.SanitizeString(q.Get("phone"), 32),
			PhoneCountry: strings.ToUpper(validators.SanitizeString(q.Get("phone_country"), 2)),
		}

		order, err := api.Track(r.Context(), code, lookup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Confirmation returns the caller's most recent placed order, or the one
// named by ?code=, so the confirmation page survives a reload.
func Confirmation(repo internalorders.ConfirmationRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "confirmations unavailable"))
			return
		}
		sess, ok := middleware.SessionFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}

		var (
			found *internalorders.Confirmation
			err   error
		)
		if code := validators.SanitizeString(r.URL.Query().Get("code"), 64); code != "" {
			found, err = repo.ByCode(ctx, sess.Key, code)
		} else {
			found, err = repo.Latest(ctx, sess.Key)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}
