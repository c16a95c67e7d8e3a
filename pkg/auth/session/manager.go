package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	redisclient "github.com/angelmondragon/storefront/pkg/redis"
)

const (
	suffixLength   = 9
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxIDLength    = 64
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Manager issues and tracks guest session ids. A guest keeps its id until it
// is revoked or its TTL lapses without use.
type Manager struct {
	store sessionStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, ttl: cfg.TTL, now: time.Now}, nil
}

// Ensure returns candidate when it is a well-formed id, refreshing its TTL, and
// otherwise issues a new id. created reports whether a new id was issued.
func (m *Manager) Ensure(ctx context.Context, candidate string) (id string, created bool, err error) {
	candidate = strings.TrimSpace(candidate)
	if ValidID(candidate) {
		key := redisclient.GuestSessionKey(candidate)
		known, err := m.store.Touch(ctx, key, m.ttl)
		if err != nil {
			return "", false, err
		}
		if !known {
			// Ids are client-held and survive server restarts; re-register.
			if err := m.store.Set(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl); err != nil {
				return "", false, err
			}
		}
		return candidate, false, nil
	}

	id, err = NewID(m.now())
	if err != nil {
		return "", false, err
	}
	if err := m.store.Set(ctx, redisclient.GuestSessionKey(id), m.now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Revoke forgets a guest session id.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, redisclient.GuestSessionKey(id))
}

// TTL is the idle lifetime of a guest session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewID produces "<unix millis>-<random base36 suffix>".
func NewID(now time.Time) (string, error) {
	var b strings.Builder
	b.Grow(suffixLength)
	limit := big.NewInt(int64(len(suffixAlphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating session id: %w", err)
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + b.String(), nil
}

// ValidID reports whether id has the "<digits>-<alphanumeric>" shape.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	ts, suffix, ok := strings.Cut(id, "-")
	if !ok || ts == "" || suffix == "" {
		return false
	}
	for _, r := range ts {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range strings.ToLower(suffix) {
		if !strings.ContainsRune(suffixAlphabet, r) {
			return false
		}
	}
	return true
}
