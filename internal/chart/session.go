package chart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"seatchart/internal/geometry"
	"seatchart/internal/holds"
	"seatchart/internal/layout"
	"seatchart/internal/realtime"
	"seatchart/internal/render"
	"seatchart/internal/selection"
	"seatchart/internal/shared/constants"
	"seatchart/internal/viewport"
	"seatchart/pkg/logger"
)

// releaseTimeout bounds the background release of an expired hold.
const releaseTimeout = 5 * time.Second

// Deps are the collaborators shared by every session of a Manager. Any of them may be nil.
type Deps struct {
	Locker    holds.Locker
	Store     viewport.Store
	Publisher realtime.Publisher
	Sprites   *render.SpriteCache
}

// SessionConfig describes one chart mount.
type SessionConfig struct {
	ID       string
	LayoutID string
	EventID  string
	UserID   string
	// Owner scopes the persisted view; defaults to the user, then to the session.
	Owner    string
	Touch    bool
	Viewport geometry.Size
	Origin   geometry.Point

	FocusSection string
	FocusRow     string
}

// Session is one buyer's chart. A single goroutine owns the selection, the seat statuses and
// the view; every public method posts a closure to it and waits for the result.
type Session struct {
	id        string
	layoutID  string
	eventID   string
	userID    string
	touchUI   bool
	createdAt time.Time
	opts      Options
	deps      Deps
	log       *logger.Logger

	cmds     chan func()
	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	reason   string
	active   atomic.Int64

	events *realtime.Broadcaster[Event]

	// Owned by the loop goroutine.
	layout     *layout.Layout
	machine    *selection.Machine
	engine     *viewport.Engine
	persister  *viewport.Persister
	boxes      []viewport.SectionBox
	version    string
	origin     geometry.Point
	hold       *holds.Hold
	ticker     *time.Ticker
	tickC      <-chan time.Time
	frameTimer *time.Timer
}

func newSession(ctx context.Context, l *layout.Layout, cfg SessionConfig, deps Deps, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:        cfg.ID,
		layoutID:  l.ID,
		eventID:   cfg.EventID,
		userID:    cfg.UserID,
		touchUI:   cfg.Touch,
		createdAt: opts.Now(),
		opts:      opts,
		deps:      deps,
		log:       logger.GetDefault().WithSessionID(cfg.ID),
		cmds:      make(chan func()),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
		events:    realtime.NewPriorityBroadcaster(mustDeliver),
		layout:    l,
		boxes:     render.BoxesOf(l),
		version:   l.ID + "@" + l.GeometryHash(),
		origin:    cfg.Origin,
	}
	if s.eventID == "" {
		s.eventID = l.EventID
	}
	if s.layoutID == "" {
		s.layoutID = cfg.LayoutID
	}
	s.markActive()

	s.machine = selection.NewMachine(l, selection.Options{
		SessionID:   cfg.ID,
		MaxSeats:    opts.MaxSeats,
		HoldSeconds: opts.HoldSeconds,
		Fee:         opts.Fee,
		OnChange:    s.onChange,
		OnNotice:    s.onNotice,
	})

	vopts := opts.Pointer
	if cfg.Touch {
		vopts = opts.Touch
	}
	s.engine = viewport.NewEngine(vopts)
	s.engine.SetContent(viewport.Content{Bounds: l.Bounds(), SeatCount: l.SeatCount(), Signature: l.Signature()})
	s.engine.SetOrigin(cfg.Origin)
	if !cfg.Viewport.IsEmpty() {
		s.engine.SetViewport(cfg.Viewport)
	}

	if deps.Store != nil {
		owner := cfg.Owner
		if owner == "" {
			owner = cfg.UserID
		}
		if owner == "" {
			owner = cfg.ID
		}
		s.persister = viewport.NewPersister(deps.Store, constants.BuildViewStateKey(owner, s.layoutID), opts.PersistDebounce)
		if saved, ok := s.persister.Load(ctx); ok {
			s.engine.Restore(saved)
		}
	}
	if cfg.FocusSection != "" {
		s.focus(cfg.FocusSection, cfg.FocusRow)
	}

	go s.run()
	return s
}

func (s *Session) ID() string       { return s.id }
func (s *Session) LayoutID() string { return s.layoutID }
func (s *Session) EventID() string  { return s.eventID }
func (s *Session) UserID() string   { return s.userID }

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.exited }

// IdleFor reports how long the session has gone without a call.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.active.Load()))
}

func (s *Session) markActive() {
	s.active.Store(s.opts.Now().UnixNano())
}

// Subscribe streams session events. The channel is closed when the session closes.
func (s *Session) Subscribe() chan Event { return s.events.Subscribe() }

func (s *Session) Unsubscribe(ch chan Event) { s.events.Unsubscribe(ch) }

// Close stops the session and waits for its goroutine to exit. Safe to call more than once.
func (s *Session) Close(reason string) {
	s.stopOnce.Do(func() {
		s.reason = reason
		close(s.quit)
	})
	<-s.exited
}

func (s *Session) run() {
	defer close(s.exited)
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-s.tickC:
			s.tick()
		case <-s.quit:
			s.shutdown()
			return
		}
		s.syncTicker()
	}
}

// do runs fn on the loop and waits for it. A closure accepted by the loop always runs to
// completion, so only the hand-off can fail.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.cmds <- wrapped:
	case <-s.exited:
		return ErrSessionClosed
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	s.markActive()
	return nil
}

// post queues fn without waiting. Used by timer callbacks.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.quit:
	case <-s.exited:
	}
}

func (s *Session) shutdown() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker, s.tickC = nil, nil
	}
	if s.frameTimer != nil {
		s.frameTimer.Stop()
		s.frameTimer = nil
	}
	if s.persister != nil {
		s.persister.Stop()
	}
	s.engine.Detach()
	s.events.Publish(Event{Type: EventClosed, Reason: s.reason})
	s.events.Close()
	logger.GetDefault().LogSessionClosed(context.Background(), s.id, s.reason)
}

// ---- loop-side helpers ----

func (s *Session) syncTicker() {
	active := s.machine.TimerState() == selection.TimerActive
	switch {
	case active && s.ticker == nil:
		s.ticker = time.NewTicker(s.opts.TickInterval)
		s.tickC = s.ticker.C
	case !active && s.ticker != nil:
		s.ticker.Stop()
		s.ticker, s.tickC = nil, nil
	}
}

func (s *Session) tick() {
	if err := s.machine.Tick(); errors.Is(err, selection.ErrHoldExpired) {
		if hold := s.hold; hold != nil {
			s.hold = nil
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
				defer cancel()
				s.release(ctx, hold)
			}()
		}
		return
	}
	s.onChange(s.machine.Snapshot())
}

func (s *Session) onChange(sel selection.Selection) {
	s.events.Publish(Event{Type: EventSelection, Selection: &sel})
}

func (s *Session) onNotice(n selection.Notice) {
	ctx := context.Background()
	switch n.Kind {
	case selection.NoticeHoldExpired:
		logger.GetDefault().LogHoldExpired(ctx, s.id, len(n.SeatIDs))
	case selection.NoticeSeatRevoked:
		for _, id := range n.SeatIDs {
			_, _, seat, _ := s.layout.Seat(id)
			heldBy := ""
			if seat != nil {
				heldBy = seat.HeldBy
			}
			logger.GetDefault().LogSeatRevoked(ctx, s.id, id, heldBy)
		}
	}
	s.events.Publish(Event{Type: EventNotice, Notice: &n})
}

func (s *Session) view() View {
	return View{
		Scale:    s.engine.Scale(),
		Pan:      s.engine.Pan(),
		Viewport: s.engine.Viewport(),
		Gesture:  s.engine.Gesture(),
		Visible:  s.visible(),
	}
}

func (s *Session) visible() []string {
	if s.engine.Viewport().IsEmpty() {
		return nil
	}
	return s.engine.VisibleSections(s.boxes)
}

func (s *Session) viewChanged() {
	if s.persister != nil {
		s.persister.Schedule(s.engine.Saved())
	}
	v := s.view()
	s.events.Publish(Event{Type: EventView, View: &v})
}

func (s *Session) scheduleFrame() {
	if s.frameTimer != nil {
		return
	}
	s.frameTimer = time.AfterFunc(s.opts.FrameInterval, func() {
		s.post(s.flushFrame)
	})
}

func (s *Session) flushFrame() {
	s.frameTimer = nil
	if s.engine.FlushFrame().Changed {
		s.viewChanged()
	}
}

func (s *Session) frame() render.Frame {
	selected := make(map[string]bool)
	for _, id := range s.machine.SeatIDs() {
		selected[id] = true
	}
	return render.Build(render.Input{
		Layout:    s.layout,
		Version:   s.version,
		Visible:   s.visible(),
		Selected:  selected,
		Me:        s.id,
		Transform: s.engine.Transform(),
		Viewport:  s.engine.Viewport(),
	}, s.deps.Sprites)
}

func (s *Session) tapAt(p geometry.Point, confirm bool) TapResult {
	target, ok := render.HitTest(s.frame(), p)
	if !ok {
		return TapResult{}
	}
	return s.selectTarget(target, confirm)
}

func (s *Session) selectTarget(t selection.Target, confirm bool) TapResult {
	res := TapResult{Hit: true, Seat: &t}
	outcome, err := s.machine.SelectSeat(t, confirm)
	if err != nil {
		res.Rejection = rejectionOf(err)
		logger.GetDefault().LogSeatRejected(context.Background(), s.id, t.SeatID, string(res.Rejection.Reason))
		return res
	}
	res.Outcome = outcome
	if outcome == selection.OutcomeDeselected || s.engine.Scale() >= s.opts.TapZoomThreshold {
		return res
	}
	if sec, _, seat, ok := s.layout.Seat(t.SeatID); ok {
		if s.engine.ZoomToPoint(sec.SeatCenter(seat), s.opts.TapZoomTarget).Changed {
			res.Zoomed = true
			s.viewChanged()
		}
	}
	return res
}

func (s *Session) focus(sectionID, rowID string) bool {
	p, ok := s.layout.Focus(sectionID, rowID)
	if !ok {
		return false
	}
	return s.engine.DeepLink(p, s.opts.DeepLinkZoom)
}

func (s *Session) gesture(in GestureInput) (GestureResult, error) {
	at := s.opts.Now()
	var res viewport.Result
	switch in.Kind {
	case GesturePointerDown:
		res = s.engine.PointerDown(in.Point, at)
	case GesturePointerMove:
		res = s.engine.PointerMove(in.Point, at)
	case GesturePointerUp:
		res = s.engine.PointerUp(in.Point, at)
	case GestureTouchStart:
		res = s.engine.TouchStart(in.Points, at)
	case GestureTouchMove:
		res = s.engine.TouchMove(in.Points, at)
	case GestureTouchEnd:
		res = s.engine.TouchEnd(in.Points, at)
	case GestureWheel:
		res = s.engine.Wheel(in.Point, in.DeltaY)
	case GestureZoomIn:
		res = s.engine.ZoomIn()
	case GestureZoomOut:
		res = s.engine.ZoomOut()
	case GestureReset:
		res = s.engine.Reset()
	case GestureResize:
		if in.Origin != nil {
			s.origin = *in.Origin
			s.engine.SetOrigin(s.origin)
		}
		res = s.engine.SetViewport(in.Size)
	default:
		return GestureResult{}, ErrUnknownGesture
	}

	out := GestureResult{DoubleTap: res.DoubleTap}
	if res.NeedsFrame {
		s.scheduleFrame()
	}
	if res.Changed {
		s.viewChanged()
	}
	if res.Tap != nil {
		tap := s.tapAt(*res.Tap, in.Confirm)
		out.Tap = &tap
	}
	out.View = s.view()
	return out, nil
}

func (s *Session) state() State {
	st := State{
		ID:        s.id,
		LayoutID:  s.layoutID,
		EventID:   s.eventID,
		UserID:    s.userID,
		Touch:     s.touchUI,
		Selection: s.machine.Snapshot(),
		View:      s.view(),
		CreatedAt: s.createdAt,
	}
	if s.hold != nil {
		h := *s.hold
		st.Hold = &h
	}
	return st
}

func rejectionOf(err error) *Rejection {
	r := &Rejection{Reason: selection.ReasonOf(err), Message: err.Error()}
	var verr *selection.ValidationError
	if errors.As(err, &verr) {
		r.NeedsConfirmation = verr.NeedsConfirmation
	}
	return r
}

func (s *Session) holderUserID() string {
	if s.userID != "" {
		return s.userID
	}
	return s.id
}

func (s *Session) announce(ctx context.Context, status layout.SeatStatus, seatIDs []string) {
	if s.deps.Publisher == nil || len(seatIDs) == 0 {
		return
	}
	deltas := make([]realtime.Delta, 0, len(seatIDs))
	for _, id := range seatIDs {
		deltas = append(deltas, realtime.Delta{
			LayoutID: s.layoutID,
			EventID:  s.eventID,
			SeatID:   id,
			Status:   status,
			HeldBy:   s.id,
		})
	}
	if err := s.deps.Publisher.Publish(ctx, deltas...); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish seat status", "status", status, "error", err)
	}
}

// ---- public API ----

// State returns a copy of the session's selection and view.
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.do(ctx, func() { st = s.state() })
	return st, err
}

// Frame renders the current view.
func (s *Session) Frame(ctx context.Context) (render.Frame, error) {
	var f render.Frame
	err := s.do(ctx, func() { f = s.frame() })
	return f, err
}

// Tap resolves a point in the client's input frame to a seat and toggles it.
func (s *Session) Tap(ctx context.Context, p geometry.Point, confirm bool) (TapResult, error) {
	var res TapResult
	err := s.do(ctx, func() { res = s.tapAt(p.Sub(s.origin), confirm) })
	return res, err
}

// SelectSeat toggles a seat addressed by id, as a tap on it would.
func (s *Session) SelectSeat(ctx context.Context, t selection.Target, confirm bool) (TapResult, error) {
	var res TapResult
	err := s.do(ctx, func() { res = s.selectTarget(t, confirm) })
	return res, err
}

// SetSelection replaces the selection wholesale. The selection error, if any, is returned as is.
func (s *Session) SetSelection(ctx context.Context, targets []selection.Target) (selection.Selection, error) {
	var (
		sel    selection.Selection
		selErr error
	)
	if err := s.do(ctx, func() {
		selErr = s.machine.SetSelection(targets)
		sel = s.machine.Snapshot()
	}); err != nil {
		return selection.Selection{}, err
	}
	return sel, selErr
}

// Gesture feeds one raw input event to the viewport. A gesture that resolves as a tap selects
// the seat under it.
func (s *Session) Gesture(ctx context.Context, in GestureInput) (GestureResult, error) {
	var (
		res    GestureResult
		gesErr error
	)
	if err := s.do(ctx, func() { res, gesErr = s.gesture(in) }); err != nil {
		return GestureResult{}, err
	}
	return res, gesErr
}

// Focus deep-links the view to a section, or one of its rows. It applies once per layout load.
func (s *Session) Focus(ctx context.Context, sectionID, rowID string) (bool, error) {
	var applied, found bool
	if err := s.do(ctx, func() {
		if _, found = s.layout.Section(sectionID); !found {
			return
		}
		if applied = s.focus(sectionID, rowID); applied {
			s.viewChanged()
		}
	}); err != nil {
		return false, err
	}
	if !found {
		return false, ErrSectionNotFound
	}
	return applied, nil
}

// Clear deselects everything and releases any seat hold taken at checkout.
func (s *Session) Clear(ctx context.Context) error {
	var hold *holds.Hold
	if err := s.do(ctx, func() {
		s.machine.Clear()
		hold, s.hold = s.hold, nil
	}); err != nil {
		return err
	}
	s.release(ctx, hold)
	return nil
}

func (s *Session) release(ctx context.Context, hold *holds.Hold) {
	if hold == nil || s.deps.Locker == nil {
		return
	}
	if _, err := s.deps.Locker.Release(ctx, hold.ID); err != nil && !errors.Is(err, holds.ErrHoldNotFound) {
		s.log.ErrorContext(ctx, "Failed to release hold", "hold_id", hold.ID, "error", err)
	}
}

// ExtendHold adds seconds to an active countdown and to the lock behind it.
func (s *Session) ExtendHold(ctx context.Context, seconds int) (bool, error) {
	var ok bool
	var hold *holds.Hold
	if err := s.do(ctx, func() {
		ok = s.machine.ExtendHold(seconds)
		hold = s.hold
	}); err != nil || !ok {
		return ok, err
	}
	if hold == nil || s.deps.Locker == nil {
		return true, nil
	}

	extended, err := s.deps.Locker.Extend(ctx, hold.ID, time.Duration(seconds)*time.Second)
	if errors.Is(err, holds.ErrHoldNotFound) {
		s.log.WarnContext(ctx, "Hold gone before extend", "hold_id", hold.ID)
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("extend hold %s: %w", hold.ID, err)
	}
	err = s.do(ctx, func() {
		if s.hold != nil && s.hold.ID == extended.ID {
			s.hold = extended
		}
	})
	return true, err
}

// Checkout locks the selected seats with the hold service. A rejection comes back as a
// *holds.LockRejectedError carrying the server's reason, and the selection is left untouched.
func (s *Session) Checkout(ctx context.Context) (*holds.Hold, error) {
	var req holds.LockRequest
	if err := s.do(ctx, func() {
		req = holds.LockRequest{
			EventID:  s.eventID,
			LayoutID: s.layoutID,
			UserID:   s.holderUserID(),
			HolderID: s.id,
			SeatIDs:  s.machine.SeatIDs(),
		}
	}); err != nil {
		return nil, err
	}
	if len(req.SeatIDs) == 0 {
		return nil, ErrEmptySelection
	}
	if s.deps.Locker == nil {
		return nil, holds.ErrRedisUnavailable
	}

	hold, err := s.deps.Locker.Lock(ctx, req)
	if err != nil {
		var rejected *holds.LockRejectedError
		if errors.As(err, &rejected) {
			s.log.WarnContext(ctx, "Checkout rejected", "reason", rejected.Reason)
		}
		return nil, err
	}

	if err := s.do(ctx, func() { s.hold = hold }); err != nil {
		return hold, err
	}
	return hold, nil
}

// MarkBooked promotes the selection to booked once the surrounding page confirms payment, and
// announces the booked seats to other sessions.
func (s *Session) MarkBooked(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.do(ctx, func() {
		ids = s.machine.MarkBooked()
		s.hold = nil
	}); err != nil {
		return nil, err
	}
	s.announce(ctx, layout.StatusBooked, ids)
	return ids, nil
}

// ApplyDelta merges a remote seat-status change.
func (s *Session) ApplyDelta(ctx context.Context, d realtime.Delta) (selection.DeltaResult, error) {
	var res selection.DeltaResult
	err := s.do(ctx, func() {
		res = s.machine.ApplyDelta(d.Selection())
		if !res.Applied {
			return
		}
		_, _, seat, ok := s.layout.Seat(d.SeatID)
		if !ok {
			return
		}
		s.events.Publish(Event{Type: EventSeat, Seat: &SeatChange{SeatID: seat.ID, Status: seat.Status, HeldBy: seat.HeldBy}})
	})
	return res, err
}
