package viewport

import (
	"time"

	"seatchart/internal/geometry"
)

// gesture is the pointer/touch tracking state. Exactly one variant is live at a time and only
// the input handlers transition between them.
type gesture interface {
	name() string
}

type idleGesture struct{}

// panningGesture tracks one pointer from press. It only moves the view once dragging is set,
// which happens when displacement from start exceeds the drag threshold.
type panningGesture struct {
	start     geometry.Point
	originPan geometry.Point
	dragging  bool
}

// pinchingGesture tracks two touches. anchor is the midpoint at the last applied sample and
// prevDistance the finger distance at that sample.
type pinchingGesture struct {
	anchor        geometry.Point
	startDistance float64
	startScale    float64
	prevDistance  float64
}

func (idleGesture) name() string      { return "idle" }
func (*panningGesture) name() string  { return "panning" }
func (*pinchingGesture) name() string { return "pinching" }

// pinchSample is the latest two-finger reading waiting for the next frame.
type pinchSample struct {
	mid      geometry.Point
	distance float64
}

type tapRecord struct {
	at    time.Time
	point geometry.Point
}

// Result tells the caller what an input did.
type Result struct {
	// Changed is set when scale or pan moved.
	Changed bool `json:"changed"`
	// NeedsFrame is set when a pinch sample is waiting for FlushFrame.
	NeedsFrame bool `json:"needs_frame,omitempty"`
	// Tap is the viewport-local screen point of a gesture that resolved as a single tap.
	Tap *geometry.Point `json:"tap,omitempty"`
	// DoubleTap is set when the gesture completed a double tap and the view was reset.
	DoubleTap bool `json:"double_tap,omitempty"`
}

func (r Result) merge(o Result) Result {
	r.Changed = r.Changed || o.Changed
	r.NeedsFrame = r.NeedsFrame || o.NeedsFrame
	r.DoubleTap = r.DoubleTap || o.DoubleTap
	if o.Tap != nil {
		r.Tap = o.Tap
	}
	return r
}
