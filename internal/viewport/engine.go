// Package viewport owns the zoom scale and pan offset of a seating chart. It converts between
// chart space and screen space, disambiguates pointer and touch gestures, keeps the content on
// screen and decides which sections are worth drawing. An Engine is not safe for concurrent use.
package viewport

import (
	"math"
	"time"

	"seatchart/internal/geometry"
)

// Content describes what is being framed.
type Content struct {
	Bounds    geometry.Rect `json:"bounds"`
	SeatCount int           `json:"seat_count"`
	// Signature changes whenever the content changes shape; a saved view only restores onto
	// content with the same signature.
	Signature string `json:"signature"`
}

// SavedView is the persisted part of the view state.
type SavedView struct {
	Zoom      float64        `json:"zoom"`
	Pan       geometry.Point `json:"pan"`
	Signature string         `json:"signature"`
}

// SectionBox is a section's content-space bounding box, used for culling.
type SectionBox struct {
	ID   string        `json:"id"`
	Rect geometry.Rect `json:"rect"`
}

type Engine struct {
	opts       Options
	content    Content
	hasContent bool
	viewport   geometry.Size
	origin     geometry.Point
	tf         geometry.Transform

	gesture    gesture
	pending    *pinchSample
	lastTap    *tapRecord
	deepLinked bool
	detached   bool
	// restored is set while a saved view waits for the first viewport size.
	restored bool
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:    opts.withDefaults(),
		tf:      geometry.Identity,
		gesture: idleGesture{},
	}
}

func (e *Engine) Options() Options { return e.opts }

// Transform returns the current chart-to-screen transform.
func (e *Engine) Transform() geometry.Transform { return e.tf }

func (e *Engine) Scale() float64 { return e.tf.Scale }

func (e *Engine) Pan() geometry.Point { return e.tf.Pan }

func (e *Engine) Viewport() geometry.Size { return e.viewport }

func (e *Engine) Content() Content { return e.content }

// Gesture names the live gesture state: idle, panning or pinching.
func (e *Engine) Gesture() string { return e.gesture.name() }

// SetContent installs new content. When the signature differs from the current one the view
// is reset to fit-to-bounds and the deep link guard is re-armed. It reports whether it reset.
func (e *Engine) SetContent(c Content) bool {
	if e.hasContent && c.Signature == e.content.Signature && c.Signature != "" {
		e.content = c
		return false
	}
	e.content = c
	e.hasContent = true
	e.deepLinked = false
	e.teardown()
	e.FitToBounds()
	return true
}

// SetViewport resizes the viewport. The first non-empty size frames the content, unless a saved
// view was restored before it, in which case that view is kept and clamped.
func (e *Engine) SetViewport(size geometry.Size) Result {
	first := e.viewport.IsEmpty() && !size.IsEmpty()
	e.viewport = size
	before := e.tf
	if first && !e.restored {
		e.FitToBounds()
	} else {
		e.clampPan()
	}
	if first {
		e.restored = false
	}
	return Result{Changed: before != e.tf}
}

// SetOrigin sets the viewport's top-left corner in the coordinate frame of incoming input.
// Input points are translated into the viewport's local frame by subtracting it.
func (e *Engine) SetOrigin(origin geometry.Point) {
	e.origin = origin
}

func (e *Engine) local(p geometry.Point) geometry.Point {
	return p.Sub(e.origin)
}

// FitToBounds frames the content within the padding, centred horizontally and aligned to the
// top padding. The scale is capped by seat density and clamped to the scale range.
func (e *Engine) FitToBounds() {
	e.restored = false
	b := e.content.Bounds
	if b.IsEmpty() || e.viewport.IsEmpty() {
		e.tf = geometry.Identity
		return
	}
	availW := math.Max(1, e.viewport.Width-2*e.opts.Padding)
	availH := math.Max(1, e.viewport.Height-2*e.opts.Padding)
	s := math.Min(availW/b.Width, availH/b.Height)
	s = math.Min(s, e.opts.densityCap(e.content.SeatCount))
	s = e.clampScale(s)

	e.tf = geometry.Transform{
		Scale: s,
		Pan: geometry.Point{
			X: (e.viewport.Width-b.Width*s)/2 - b.X*s,
			Y: e.opts.Padding - b.Y*s,
		},
	}
	e.clampPan()
}

// Reset returns to fit-to-bounds and drops any gesture in progress.
func (e *Engine) Reset() Result {
	before := e.tf
	e.teardown()
	e.FitToBounds()
	return Result{Changed: before != e.tf}
}

// ZoomAt rescales to scale keeping the content point under the viewport-local screen point p
// fixed.
func (e *Engine) ZoomAt(p geometry.Point, scale float64) Result {
	before := e.tf
	e.zoomAround(p, p, scale)
	return Result{Changed: before != e.tf}
}

// zoomAround places the content point currently under from at to, at the new scale.
func (e *Engine) zoomAround(from, to geometry.Point, scale float64) {
	anchor := e.tf.ToContent(from)
	s := e.clampScale(scale)
	e.tf = geometry.Transform{
		Scale: s,
		Pan:   geometry.Point{X: to.X - anchor.X*s, Y: to.Y - anchor.Y*s},
	}
	e.clampPan()
}

// Wheel zooms in for negative deltaY and out for positive, anchored at the pointer.
func (e *Engine) Wheel(p geometry.Point, deltaY float64) Result {
	if e.detached || deltaY == 0 {
		return Result{}
	}
	factor := e.opts.WheelStep
	if deltaY > 0 {
		factor = 1 / factor
	}
	return e.ZoomAt(e.local(p), e.tf.Scale*factor)
}

// ZoomIn zooms one button step anchored at the viewport centre.
func (e *Engine) ZoomIn() Result {
	return e.ZoomAt(e.centre(), e.tf.Scale*e.opts.ButtonStep)
}

// ZoomOut zooms out one button step anchored at the viewport centre.
func (e *Engine) ZoomOut() Result {
	return e.ZoomAt(e.centre(), e.tf.Scale/e.opts.ButtonStep)
}

// ZoomToPoint centres the viewport on a content-space point at the given zoom.
func (e *Engine) ZoomToPoint(p geometry.Point, zoom float64) Result {
	before := e.tf
	s := e.clampScale(zoom)
	c := e.centre()
	e.tf = geometry.Transform{
		Scale: s,
		Pan:   geometry.Point{X: c.X - p.X*s, Y: c.Y - p.Y*s},
	}
	e.clampPan()
	return Result{Changed: before != e.tf}
}

// DeepLink zooms to p once per content load. Later calls are ignored until SetContent resets.
func (e *Engine) DeepLink(p geometry.Point, zoom float64) bool {
	if e.deepLinked {
		return false
	}
	e.deepLinked = true
	e.ZoomToPoint(p, zoom)
	return true
}

// Restore applies a saved view when it was taken on content of the same shape.
func (e *Engine) Restore(v SavedView) bool {
	if !e.hasContent || v.Signature == "" || v.Signature != e.content.Signature || v.Zoom <= 0 {
		return false
	}
	if math.IsNaN(v.Zoom) || math.IsNaN(v.Pan.X) || math.IsNaN(v.Pan.Y) {
		return false
	}
	e.tf = geometry.Transform{Scale: e.clampScale(v.Zoom), Pan: v.Pan}
	e.clampPan()
	e.restored = e.viewport.IsEmpty()
	return true
}

// Saved returns the view to persist.
func (e *Engine) Saved() SavedView {
	return SavedView{Zoom: e.tf.Scale, Pan: e.tf.Pan, Signature: e.content.Signature}
}

// Detach drops gesture state and ignores all further input.
func (e *Engine) Detach() {
	e.teardown()
	e.lastTap = nil
	e.detached = true
}

func (e *Engine) teardown() {
	e.gesture = idleGesture{}
	e.pending = nil
}

// VisibleWindow returns the content-space rectangle currently on screen.
func (e *Engine) VisibleWindow() geometry.Rect {
	return e.tf.VisibleWindow(e.viewport)
}

// VisibleSections returns the ids of sections whose padded box intersects the visible window,
// in input order.
func (e *Engine) VisibleSections(boxes []SectionBox) []string {
	window := e.VisibleWindow()
	ids := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if b.Rect.Pad(e.opts.CullPadding).Intersects(window) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func (e *Engine) centre() geometry.Point {
	return geometry.Point{X: e.viewport.Width / 2, Y: e.viewport.Height / 2}
}

func (e *Engine) clampScale(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return e.opts.MinScale
	}
	return math.Max(e.opts.MinScale, math.Min(e.opts.MaxScale, s))
}

// clampPan keeps the scaled content box overlapping the viewport on both axes. Per axis the
// content's leading screen edge is kept within [min(0, vp-content), max(0, vp-content)].
func (e *Engine) clampPan() {
	b := e.content.Bounds
	if b.IsEmpty() || e.viewport.IsEmpty() {
		return
	}
	s := e.tf.Scale
	e.tf.Pan.X = clampAxis(e.tf.Pan.X, b.X*s, b.Width*s, e.viewport.Width)
	e.tf.Pan.Y = clampAxis(e.tf.Pan.Y, b.Y*s, b.Height*s, e.viewport.Height)
}

func clampAxis(pan, offset, extent, viewport float64) float64 {
	lo := math.Min(0, viewport-extent)
	hi := math.Max(0, viewport-extent)
	edge := pan + offset
	if edge < lo {
		edge = lo
	} else if edge > hi {
		edge = hi
	}
	return edge - offset
}

// --- Pointer input ---

// PointerDown starts tracking a mouse or pen press.
func (e *Engine) PointerDown(p geometry.Point, at time.Time) Result {
	if e.detached {
		return Result{}
	}
	if _, pinching := e.gesture.(*pinchingGesture); pinching {
		return Result{}
	}
	e.gesture = &panningGesture{start: e.local(p), originPan: e.tf.Pan}
	return Result{}
}

// PointerMove pans once the press has travelled past the drag threshold.
func (e *Engine) PointerMove(p geometry.Point, at time.Time) Result {
	if e.detached {
		return Result{}
	}
	pan, ok := e.gesture.(*panningGesture)
	if !ok {
		return Result{}
	}
	return e.drag(pan, e.local(p))
}

// PointerUp ends the press. A press that never crossed the drag threshold resolves as a tap.
func (e *Engine) PointerUp(p geometry.Point, at time.Time) Result {
	if e.detached {
		return Result{}
	}
	pan, ok := e.gesture.(*panningGesture)
	if !ok {
		return Result{}
	}
	e.gesture = idleGesture{}
	if pan.dragging {
		return Result{}
	}
	return e.tap(pan.start, at)
}

func (e *Engine) drag(pan *panningGesture, p geometry.Point) Result {
	if !pan.dragging {
		if p.Distance(pan.start) <= e.opts.DragThreshold {
			return Result{}
		}
		pan.dragging = true
		e.lastTap = nil
	}
	before := e.tf
	e.tf.Pan = pan.originPan.Add(p.Sub(pan.start))
	e.clampPan()
	return Result{Changed: before != e.tf}
}

func (e *Engine) tap(p geometry.Point, at time.Time) Result {
	if prev := e.lastTap; prev != nil && at.Sub(prev.at) <= e.opts.DoubleTapWindow && p.Distance(prev.point) <= e.opts.DoubleTapSlop {
		e.lastTap = nil
		res := e.Reset()
		res.DoubleTap = true
		return res
	}
	e.lastTap = &tapRecord{at: at, point: p}
	tap := p
	return Result{Tap: &tap}
}

// --- Touch input ---

// TouchStart receives every active touch point after a finger lands.
func (e *Engine) TouchStart(points []geometry.Point, at time.Time) Result {
	if e.detached || len(points) == 0 {
		return Result{}
	}
	if len(points) >= 2 {
		p0, p1 := e.local(points[0]), e.local(points[1])
		d := p0.Distance(p1)
		e.gesture = &pinchingGesture{
			anchor:        geometry.Midpoint(p0, p1),
			startDistance: d,
			startScale:    e.tf.Scale,
			prevDistance:  d,
		}
		e.pending = nil
		e.lastTap = nil
		return Result{}
	}
	if _, idle := e.gesture.(idleGesture); idle {
		e.gesture = &panningGesture{start: e.local(points[0]), originPan: e.tf.Pan}
	}
	return Result{}
}

// TouchMove receives every active touch point after any of them moves. Pinch samples are
// queued for FlushFrame; a single finger pans past the drag threshold.
func (e *Engine) TouchMove(points []geometry.Point, at time.Time) Result {
	if e.detached || len(points) == 0 {
		return Result{}
	}
	switch g := e.gesture.(type) {
	case *pinchingGesture:
		if len(points) < 2 {
			return Result{}
		}
		p0, p1 := e.local(points[0]), e.local(points[1])
		e.pending = &pinchSample{mid: geometry.Midpoint(p0, p1), distance: p0.Distance(p1)}
		return Result{NeedsFrame: true}
	case *panningGesture:
		if len(points) != 1 {
			return Result{}
		}
		return e.drag(g, e.local(points[0]))
	}
	return Result{}
}

// TouchEnd receives the touch points still down after a finger lifts. Ending a pinch tears
// it down completely; a remaining finger does not continue as a pan.
func (e *Engine) TouchEnd(remaining []geometry.Point, at time.Time) Result {
	if e.detached {
		return Result{}
	}
	switch g := e.gesture.(type) {
	case *pinchingGesture:
		if len(remaining) >= 2 {
			return Result{}
		}
		res := e.FlushFrame()
		e.teardown()
		return res
	case *panningGesture:
		if len(remaining) > 0 {
			return Result{}
		}
		e.gesture = idleGesture{}
		if g.dragging {
			return Result{}
		}
		return e.tap(g.start, at)
	}
	return Result{}
}

// FlushFrame applies the latest queued pinch sample, if any. Call once per animation frame.
func (e *Engine) FlushFrame() Result {
	pinch, ok := e.gesture.(*pinchingGesture)
	if !ok || e.pending == nil {
		e.pending = nil
		return Result{}
	}
	sample := *e.pending
	e.pending = nil
	if pinch.prevDistance <= 0 || sample.distance <= 0 {
		pinch.prevDistance = sample.distance
		pinch.anchor = sample.mid
		return Result{}
	}

	before := e.tf
	scale := e.tf.Scale * (sample.distance / pinch.prevDistance)
	e.zoomAround(pinch.anchor, sample.mid, scale)
	pinch.prevDistance = sample.distance
	pinch.anchor = sample.mid
	return Result{Changed: before != e.tf}
}

// PinchPending reports whether a pinch sample is waiting for the next frame.
func (e *Engine) PinchPending() bool {
	return e.pending != nil
}
