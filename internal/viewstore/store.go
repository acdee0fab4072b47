// Package viewstore persists chart view state (zoom, pan and the layout signature it was taken
// against) in redis so a buyer returning to a layout sees the chart where they left it.
package viewstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatchart/internal/shared/constants"
	"seatchart/internal/viewport"
	"seatchart/pkg/cache"
)

type Store struct {
	cache cache.Service
	ttl   time.Duration
}

func New(c cache.Service, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = constants.TTL_VIEW_STATE
	}
	return &Store{cache: c, ttl: ttl}
}

// Key builds the storage key for an owner's view of a layout.
func Key(owner, layoutID string) string {
	return constants.BuildViewStateKey(owner, layoutID)
}

func (s *Store) Load(ctx context.Context, key string) (viewport.SavedView, bool, error) {
	var v viewport.SavedView
	if err := s.cache.Get(ctx, key, &v); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return viewport.SavedView{}, false, nil
		}
		return viewport.SavedView{}, false, fmt.Errorf("load view state: %w", err)
	}
	return v, true, nil
}

func (s *Store) Save(ctx context.Context, key string, view viewport.SavedView) error {
	if err := s.cache.Set(ctx, key, view, s.ttl); err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	return nil
}

// Forget removes a saved view.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
