package middleware

import "context"

type contextKey string

const ctxSession contextKey = "storefront_session"

// Session identifies the caller of a request. Key selects the per-session
// stores: "user:<id>" for signed-in callers, "guest:<session id>" otherwise.
type Session struct {
	Key       string
	SessionID string
	UserID    string
	Token     string
	Language  string
}

// Guest reports whether the caller has no bearer token.
func (s Session) Guest() bool {
	return s.UserID == ""
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(ctxSession).(Session)
	return s, ok
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, s)
}
