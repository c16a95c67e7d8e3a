package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type storesResetter interface {
	Reset(ctx context.Context, key string) error
}

type sessionRevoker interface {
	Revoke(ctx context.Context, id string) error
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Guest     bool   `json:"guest"`
	UserID    string `json:"user_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

// SessionInfo echoes who the storefront thinks the caller is.
func SessionInfo(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}
		responses.WriteSuccess(w, sessionResponse{
			SessionID: sess.SessionID,
			Guest:     sess.Guest(),
			UserID:    sess.UserID,
			Language:  sess.Language,
		})
	}
}

// SessionLogout drops the caller's cart, coupon and address state, revokes
// the guest session id and expires its cookie. The bearer token itself is
// invalidated by the backend.
func SessionLogout(stores storesResetter, sessions sessionRevoker, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if stores == nil || sessions == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session services unavailable"))
			return
		}
		sess, ok := middleware.SessionFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}

		guestKey := "guest:" + sess.SessionID
		err := stores.Reset(ctx, guestKey)
		if sess.Key != guestKey {
			err = multierr.Append(err, stores.Reset(ctx, sess.Key))
		}
		err = multierr.Append(err, sessions.Revoke(ctx, sess.SessionID))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "logout incomplete"))
			return
		}

		if cfg.CookieName != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Del(middleware.SessionHeader)
		if logg != nil {
			logg.Info(ctx, "session.logout")
		}
		responses.WriteNoContent(w)
	}
}
