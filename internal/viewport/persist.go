package viewport

import (
	"context"
	"sync"
	"time"

	"seatchart/pkg/logger"
)

// DefaultDebounce is the quiet period after the last view change before it is written.
const DefaultDebounce = 500 * time.Millisecond

const saveTimeout = 2 * time.Second

// Store persists saved views by key.
type Store interface {
	Load(ctx context.Context, key string) (SavedView, bool, error)
	Save(ctx context.Context, key string, view SavedView) error
}

// Persister debounces view writes to a Store. Schedule may be called on every change; only
// the latest view is written once the debounce elapses without another change.
type Persister struct {
	store Store
	key   string
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *SavedView
	stopped bool
}

func NewPersister(store Store, key string, debounce time.Duration) *Persister {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Persister{store: store, key: key, delay: debounce}
}

// Load reads the persisted view once, typically on chart mount.
func (p *Persister) Load(ctx context.Context) (SavedView, bool) {
	if p.store == nil {
		return SavedView{}, false
	}
	view, ok, err := p.store.Load(ctx, p.key)
	if err != nil {
		logger.GetDefault().Debug("failed to load saved view", "key", p.key, "error", err)
		return SavedView{}, false
	}
	return view, ok
}

// Schedule queues view for writing and restarts the debounce.
func (p *Persister) Schedule(view SavedView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.store == nil {
		return
	}
	p.pending = &view
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.fire)
}

// Flush writes the pending view immediately.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	view := p.pending
	p.pending = nil
	p.mu.Unlock()

	if view == nil {
		return nil
	}
	return p.store.Save(ctx, p.key, *view)
}

// Stop cancels any pending write and refuses further schedules.
func (p *Persister) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Pending reports whether a write is waiting for the debounce.
func (p *Persister) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

func (p *Persister) fire() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	view := p.pending
	p.pending = nil
	p.timer = nil
	p.mu.Unlock()

	if view == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := p.store.Save(ctx, p.key, *view); err != nil {
		logger.GetDefault().Debug("failed to save view", "key", p.key, "error", err)
	}
}
