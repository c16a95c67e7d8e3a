package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	SessionHeader        = "X-Session-Id"
	acceptLanguageHeader = "Accept-Language"
)

type guestSessions interface {
	Ensure(ctx context.Context, candidate string) (string, bool, error)
}

// Sessions resolves the caller's guest session id and optional bearer token,
// and seeds the context with the credentials forwarded to the backend.
func Sessions(sessions guestSessions, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var cookieValue string
			if cfg.CookieName != "" {
				if c, err := r.Cookie(cfg.CookieName); err == nil {
					cookieValue = strings.TrimSpace(c.Value)
				}
			}
			candidate := strings.TrimSpace(r.Header.Get(SessionHeader))
			if candidate == "" {
				candidate = cookieValue
			}

			sessionID, created, err := sessions.Ensure(ctx, candidate)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session"))
				return
			}
			w.Header().Set(SessionHeader, sessionID)
			if created || cookieValue != sessionID {
				setSessionCookie(w, cfg, sessionID)
			}

			sess := Session{
				Key:       "guest:" + sessionID,
				SessionID: sessionID,
				Language:  primaryLanguage(r.Header.Get(acceptLanguageHeader)),
			}

			if token := validators.BearerToken(r); token != "" {
				identity, err := pkgAuth.InspectBearer(token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				if identity.Expired(time.Now()) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired"))
					return
				}
				sess.Key = identity.Key()
				sess.UserID = identity.UserID
				sess.Token = token
			}

			ctx = WithSession(ctx, sess)
			ctx = backend.WithCredentials(ctx, backend.Credentials{
				BearerToken: sess.Token,
				SessionID:   sess.SessionID,
				Language:    sess.Language,
			})
			if logg != nil {
				ctx = logg.WithSessionKey(ctx, sess.Key)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guests.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || sess.Guest() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, id string) {
	if cfg.CookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// primaryLanguage returns the first language tag of an Accept-Language
// header without its region, e.g. "ar-EG,ar;q=0.9" yields "ar".
func primaryLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	first, _, _ = strings.Cut(strings.TrimSpace(first), "-")
	first = strings.ToLower(strings.TrimSpace(first))
	if first == "*" {
		return ""
	}
	return first
}
