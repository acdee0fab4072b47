package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"seatchart/internal/geometry"
	"seatchart/internal/layout"
	"seatchart/internal/realtime"
	"seatchart/pkg/logger"
)

// LayoutLoader returns a private copy of a layout for one session to mutate.
type LayoutLoader interface {
	Load(ctx context.Context, req layout.Request) (*layout.Layout, error)
}

// OpenRequest opens a chart session.
type OpenRequest struct {
	LayoutID     string         `json:"layout_id" binding:"required"`
	EventID      string         `json:"event_id"`
	UserID       string         `json:"-"`
	Owner        string         `json:"owner,omitempty"`
	Touch        bool           `json:"touch"`
	Viewport     geometry.Size  `json:"viewport"`
	Origin       geometry.Point `json:"origin"`
	FocusSection string         `json:"focus_section,omitempty"`
	FocusRow     string         `json:"focus_row,omitempty"`
}

// Manager is the registry of open chart sessions. It fans remote seat-status deltas out to the
// sessions showing the affected layout.
type Manager struct {
	loader LayoutLoader
	deps   Deps
	opts   Options

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewManager(loader LayoutLoader, deps Deps, opts Options) *Manager {
	return &Manager{
		loader:   loader,
		deps:     deps,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
}

// Open loads the layout and starts a session on it.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	id := uuid.New().String()
	owner := req.Owner
	if owner == "" {
		owner = id
	}
	l, err := m.loader.Load(ctx, layout.Request{LayoutID: req.LayoutID, EventID: req.EventID, Owner: owner})
	if err != nil {
		return nil, fmt.Errorf("load layout %s: %w", req.LayoutID, err)
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = l.EventID
	}
	m.overlayHolds(ctx, l, eventID)

	s := newSession(ctx, l, SessionConfig{
		ID:           id,
		LayoutID:     req.LayoutID,
		EventID:      req.EventID,
		UserID:       req.UserID,
		Owner:        req.Owner,
		Touch:        req.Touch,
		Viewport:     req.Viewport,
		Origin:       req.Origin,
		FocusSection: req.FocusSection,
		FocusRow:     req.FocusRow,
	}, m.deps, m.opts)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.GetDefault().LogSessionOpened(ctx, id, s.LayoutID(), req.UserID)
	return s, nil
}

// overlayHolds marks the seats the lock service holds for someone else. Seats the layout already
// shows as unavailable keep their status.
func (m *Manager) overlayHolds(ctx context.Context, l *layout.Layout, eventID string) {
	if m.deps.Locker == nil || eventID == "" {
		return
	}
	held, err := m.deps.Locker.Held(ctx, eventID, l.SeatIDs())
	if err != nil {
		logger.GetDefault().WarnContext(ctx, "Failed to read active seat holds", "layout_id", l.ID, "event_id", eventID, "error", err)
		return
	}
	states := make(map[string]layout.SeatState, len(held))
	for id, holder := range held {
		if _, _, seat, ok := l.Seat(id); ok && seat.Status == layout.StatusAvailable {
			states[id] = layout.SeatState{Status: layout.StatusHold, HeldBy: holder}
		}
	}
	if n := l.ApplyStatuses(states); n > 0 {
		logger.GetDefault().DebugContext(ctx, "Laid active holds over layout", "layout_id", l.ID, "seats", n)
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close removes the session and stops it.
func (m *Manager) Close(id, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close(reason)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ApplyDelta implements realtime.Sink. A delta reaches every session on its layout, or on its
// event when the delta names no layout.
func (m *Manager) ApplyDelta(ctx context.Context, d realtime.Delta) int {
	targets := m.matching(d)
	reached := 0
	for _, s := range targets {
		if _, err := s.ApplyDelta(ctx, d); err != nil {
			continue
		}
		reached++
	}
	logger.GetDefault().LogDeltaApplied(ctx, d.LayoutID, d.SeatID, string(d.Status), reached)
	return reached
}

func (m *Manager) matching(d realtime.Delta) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if d.LayoutID != "" && d.LayoutID != s.LayoutID() {
			continue
		}
		if d.EventID != "" && s.EventID() != "" && d.EventID != s.EventID() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Sweep closes sessions idle for longer than the idle TTL and returns how many it closed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.IdleFor(now) > m.opts.IdleTTL {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close("idle")
	}
	return len(idle)
}

// Start runs the idle sweeper until ctx is done or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	interval := m.opts.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				if n := m.Sweep(m.opts.Now()); n > 0 {
					logger.GetDefault().Info("Closed idle chart sessions", "count", n)
				}
			}
		}
	}()
}

// Shutdown stops the sweeper and closes every session.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close("shutdown")
	}
}
