package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type memKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error

	touches int
}

func newMemKV() *memKV {
	return &memKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Lookup(ctx context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Del(ctx context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memKV) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.touches++
	_, ok := m.values[key]
	if ok {
		m.ttls[key] = ttl
	}
	return ok, nil
}

func TestSessionRoundTrip(t *testing.T) {
	kv := newMemKV()
	store, err := NewStore(kv, time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	session := store.ForSession("guest:abc")
	ctx := context.Background()

	if _, ok, err := session.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty slot, got ok=%v err=%v", ok, err)
	}
	if err := session.Set(ctx, " SAVE10 "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if kv.values["sf:coupon:guest:abc"] != "SAVE10" {
		t.Fatalf("unexpected stored values %v", kv.values)
	}
	if kv.ttls["sf:coupon:guest:abc"] != time.Hour {
		t.Fatalf("expected ttl to be applied")
	}

	code, ok, err := session.Get(ctx)
	if err != nil || !ok || code != "SAVE10" {
		t.Fatalf("unexpected get result %q %v %v", code, ok, err)
	}

	if err := session.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := session.Get(ctx); ok {
		t.Fatal("expected coupon to be cleared")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := NewStore(newMemKV(), time.Hour)
	ctx := context.Background()

	if err := store.ForSession("guest:a").Set(ctx, "A10"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := store.ForSession("user:7").Get(ctx); ok {
		t.Fatal("expected other session to be empty")
	}
}

func TestSetBlankClears(t *testing.T) {
	kv := newMemKV()
	store, _ := NewStore(kv, time.Hour)
	session := store.ForSession("guest:a")
	ctx := context.Background()

	_ = session.Set(ctx, "A10")
	if err := session.Set(ctx, "   "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(kv.values) != 0 {
		t.Fatalf("expected no stored values, got %v", kv.values)
	}
}

func TestErrorsAreDependencyFailures(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("connection refused")
	store, _ := NewStore(kv, time.Hour)
	session := store.ForSession("guest:a")

	_, _, err := session.Get(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if err := session.Set(context.Background(), "A10"); pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGetRefreshesTTL(t *testing.T) {
	kv := newMemKV()
	store, _ := NewStore(kv, 24*time.Hour)
	session := store.ForSession("guest:a")
	ctx := context.Background()

	if _, _, err := session.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if kv.touches != 0 {
		t.Fatalf("expected no touch for an empty slot, got %d", kv.touches)
	}

	if err := session.Set(ctx, "A10"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	kv.ttls["sf:coupon:guest:a"] = time.Minute
	for i := 0; i < 3; i++ {
		if _, ok, err := session.Get(ctx); err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
	}
	if kv.touches != 3 {
		t.Fatalf("expected 3 touches, got %d", kv.touches)
	}
	if kv.ttls["sf:coupon:guest:a"] != 24*time.Hour {
		t.Fatalf("expected ttl to be refreshed, got %v", kv.ttls["sf:coupon:guest:a"])
	}
}
