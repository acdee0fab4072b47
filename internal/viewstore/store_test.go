package viewstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"seatchart/internal/geometry"
	"seatchart/internal/shared/constants"
	"seatchart/internal/viewport"
	"seatchart/pkg/cache"
)

// memoryCache is a JSON round-tripping cache.Service.
type memoryCache struct {
	items map[string][]byte
	ttls  map[string]time.Duration
	err   error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.err != nil {
		return m.err
	}
	b, ok := m.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}

func (m *memoryCache) DeletePattern(context.Context, string) error { return nil }

func (m *memoryCache) Exists(_ context.Context, key string) bool {
	_, ok := m.items[key]
	return ok
}

func TestStore_SaveLoad(t *testing.T) {
	mc := newMemoryCache()
	s := New(mc, 0)
	key := Key("u1", "layout-1")
	want := viewport.SavedView{Zoom: 1.5, Pan: geometry.Point{X: -120, Y: 40}, Signature: "1000x800:3"}

	if err := s.Save(context.Background(), key, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := s.Load(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want a stored view", ok, err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if ttl := mc.ttls[key]; ttl != constants.TTL_VIEW_STATE {
		t.Errorf("got ttl %v, want %v", ttl, constants.TTL_VIEW_STATE)
	}
}

func TestStore_LoadMiss(t *testing.T) {
	s := New(newMemoryCache(), time.Hour)
	_, ok, err := s.Load(context.Background(), Key("u1", "nope"))
	if err != nil || ok {
		t.Errorf("got ok=%v err=%v, want a clean miss", ok, err)
	}
}

func TestStore_LoadError(t *testing.T) {
	mc := newMemoryCache()
	mc.err = errors.New("connection refused")
	s := New(mc, time.Hour)
	if _, _, err := s.Load(context.Background(), "k"); err == nil {
		t.Error("expected an error when redis fails")
	}
}

func TestStore_Forget(t *testing.T) {
	mc := newMemoryCache()
	s := New(mc, time.Hour)
	key := Key("u1", "l1")
	_ = s.Save(context.Background(), key, viewport.SavedView{Zoom: 1})
	if err := s.Forget(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mc.Exists(context.Background(), key) {
		t.Error("view should be gone after Forget")
	}
}

func TestKey(t *testing.T) {
	if got, want := Key("u1", "l1"), "seatchart:view:u1:l1"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
