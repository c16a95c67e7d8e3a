package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	redisclient "github.com/angelmondragon/storefront/pkg/redis"
)

// Store persists the applied coupon per session in Redis. The backend keeps
// no record of it, so this is the only copy.
type Store struct {
	kv  redisclient.SessionKV
	ttl time.Duration
}

func NewStore(kv redisclient.SessionKV, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("session kv required")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// ForSession binds the store to one session key ("guest:<id>" or "user:<id>").
func (s *Store) ForSession(sessionKey string) *Session {
	return &Session{store: s, key: redisclient.CouponKey(sessionKey)}
}

// Session is the coupon slot of a single session.
type Session struct {
	store *Store
	key   string
}

func (s *Session) Get(ctx context.Context) (string, bool, error) {
	code, ok, err := s.store.kv.Lookup(ctx, s.key)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read session coupon")
	}
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return "", false, nil
	}
	// Reads keep the coupon alive as long as the shopper is active.
	if _, err := s.store.kv.Touch(ctx, s.key, s.store.ttl); err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to refresh session coupon")
	}
	return code, true, nil
}

func (s *Session) Set(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return s.Clear(ctx)
	}
	if err := s.store.kv.Set(ctx, s.key, code, s.store.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store session coupon")
	}
	return nil
}

func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.kv.Del(ctx, s.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear session coupon")
	}
	return nil
}
