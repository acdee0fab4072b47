package layout

import (
	"context"
	"errors"
	"sync"
	"time"

	"seatchart/internal/shared/constants"
	"seatchart/pkg/cache"
	"seatchart/pkg/logger"
)

// Request identifies a layout load. Owner scopes supersede semantics: a newer load with the same
// non-empty owner aborts the older one.
type Request struct {
	LayoutID string
	EventID  string
	Owner    string
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Loader fetches layouts through a Source with a cache-aside layer for the static tree and
// per-owner supersede.
type Loader struct {
	source Source
	cache  cache.Service
	ttl    time.Duration

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflight
}

func NewLoader(source Source, cacheService cache.Service, ttl time.Duration) *Loader {
	return &Loader{
		source:   source,
		cache:    cacheService,
		ttl:      ttl,
		inflight: make(map[string]inflight),
	}
}

// Load returns a private copy of the layout, safe for the caller to mutate.
// A load aborted by navigation or superseded by a newer one returns ErrCancelled.
//
// Only sources that can report seat statuses separately are cached. A cache hit keeps the tree
// and takes every seat's state from a fresh SeatStatuses read, so availability is never older
// than the load itself.
func (l *Loader) Load(ctx context.Context, req Request) (*Layout, error) {
	ctx, done := l.begin(ctx, req.Owner)
	defer done()

	live, cacheable := l.source.(StatusSource)
	cacheable = cacheable && l.cache != nil

	key := constants.BuildLayoutKey(req.LayoutID, req.EventID)
	if cacheable {
		cached, err := l.cached(ctx, live, key, req)
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		if err == nil {
			return cached, nil
		}
	}

	start := time.Now()
	layout, err := l.source.Fetch(ctx, req.LayoutID, req.EventID)
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, err
	}
	logger.GetDefault().LogLayoutLoaded(ctx, req.LayoutID, layout.SeatCount(), time.Since(start))

	if cacheable {
		if err := l.cache.Set(ctx, key, layout, l.ttl); err != nil {
			logger.GetDefault().Debug("failed to cache layout", "key", key, "error", err)
		}
	}
	return layout, nil
}

// cached returns the cached tree with live statuses laid over it. Any error sends the caller
// to a full fetch.
func (l *Loader) cached(ctx context.Context, live StatusSource, key string, req Request) (*Layout, error) {
	var cached Layout
	if err := l.cache.Get(ctx, key, &cached); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.GetDefault().Debug("layout cache read failed", "key", key, "error", err)
		}
		return nil, err
	}
	cached.Reindex()

	states, err := live.SeatStatuses(ctx, req.LayoutID, req.EventID)
	if err != nil {
		logger.GetDefault().Debug("seat status refresh failed", "key", key, "error", err)
		return nil, err
	}
	changed := cached.ApplyStatuses(states)
	logger.GetDefault().Debug("cache hit for layout", "key", key, "statuses_changed", changed)
	return &cached, nil
}

// Invalidate drops the cached copy of a layout for one event, or for every event when eventID
// is empty.
func (l *Loader) Invalidate(ctx context.Context, layoutID, eventID string) error {
	if l.cache == nil {
		return nil
	}
	if eventID == "" {
		return l.cache.DeletePattern(ctx, constants.BuildLayoutPattern(layoutID))
	}
	return l.cache.Delete(ctx, constants.BuildLayoutKey(layoutID, eventID))
}

func (l *Loader) begin(parent context.Context, owner string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	if owner == "" {
		return ctx, cancel
	}

	l.mu.Lock()
	l.seq++
	seq := l.seq
	if prev, ok := l.inflight[owner]; ok {
		prev.cancel()
	}
	l.inflight[owner] = inflight{seq: seq, cancel: cancel}
	l.mu.Unlock()

	return ctx, func() {
		l.mu.Lock()
		if cur, ok := l.inflight[owner]; ok && cur.seq == seq {
			delete(l.inflight, owner)
		}
		l.mu.Unlock()
		cancel()
	}
}
