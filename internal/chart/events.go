package chart

import (
	"time"

	"seatchart/internal/geometry"
	"seatchart/internal/holds"
	"seatchart/internal/layout"
	"seatchart/internal/selection"
)

type EventType string

const (
	EventSelection EventType = "selection"
	EventNotice    EventType = "notice"
	EventView      EventType = "view"
	EventSeat      EventType = "seat"
	EventClosed    EventType = "closed"
)

// Event is pushed to everyone subscribed to a session.
type Event struct {
	Type      EventType            `json:"type"`
	Selection *selection.Selection `json:"selection,omitempty"`
	Notice    *selection.Notice    `json:"notice,omitempty"`
	View      *View                `json:"view,omitempty"`
	Seat      *SeatChange          `json:"seat,omitempty"`
	Reason    string               `json:"reason,omitempty"`
}

// mustDeliver marks the events a lagging subscriber still receives.
func mustDeliver(ev Event) bool {
	return ev.Type == EventNotice || ev.Type == EventClosed
}

// View is the observable part of the viewport state.
type View struct {
	Scale    float64        `json:"scale"`
	Pan      geometry.Point `json:"pan"`
	Viewport geometry.Size  `json:"viewport"`
	Gesture  string         `json:"gesture"`
	Visible  []string       `json:"visible_sections"`
}

// SeatChange reports a remote status change merged into the session's seat tree.
type SeatChange struct {
	SeatID string            `json:"seat_id"`
	Status layout.SeatStatus `json:"status"`
	HeldBy string            `json:"held_by,omitempty"`
}

// State is a point-in-time copy of a session.
type State struct {
	ID        string              `json:"session_id"`
	LayoutID  string              `json:"layout_id"`
	EventID   string              `json:"event_id"`
	UserID    string              `json:"user_id,omitempty"`
	Touch     bool                `json:"touch"`
	Selection selection.Selection `json:"selection"`
	View      View                `json:"view"`
	Hold      *holds.Hold         `json:"hold,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Rejection explains why a tap did not change the selection.
type Rejection struct {
	Reason            selection.Reason `json:"reason"`
	Message           string           `json:"message"`
	NeedsConfirmation bool             `json:"needs_confirmation,omitempty"`
}

// TapResult is the outcome of a tap or a direct seat selection.
type TapResult struct {
	Hit       bool              `json:"hit"`
	Seat      *selection.Target `json:"seat,omitempty"`
	Outcome   selection.Outcome `json:"outcome,omitempty"`
	Rejection *Rejection        `json:"rejection,omitempty"`
	Zoomed    bool              `json:"zoomed,omitempty"`
}

type GestureKind string

const (
	GesturePointerDown GestureKind = "pointer_down"
	GesturePointerMove GestureKind = "pointer_move"
	GesturePointerUp   GestureKind = "pointer_up"
	GestureTouchStart  GestureKind = "touch_start"
	GestureTouchMove   GestureKind = "touch_move"
	GestureTouchEnd    GestureKind = "touch_end"
	GestureWheel       GestureKind = "wheel"
	GestureZoomIn      GestureKind = "zoom_in"
	GestureZoomOut     GestureKind = "zoom_out"
	GestureReset       GestureKind = "reset"
	GestureResize      GestureKind = "resize"
)

// GestureInput is one raw input event forwarded by the client. Points are in the client's
// input frame; Origin, when set, moves the viewport's top-left corner within that frame.
type GestureInput struct {
	Kind    GestureKind      `json:"kind" binding:"required"`
	Point   geometry.Point   `json:"point"`
	Points  []geometry.Point `json:"points,omitempty"`
	DeltaY  float64          `json:"delta_y,omitempty"`
	Size    geometry.Size    `json:"size,omitempty"`
	Origin  *geometry.Point  `json:"origin,omitempty"`
	Confirm bool             `json:"confirm,omitempty"`
}

type GestureResult struct {
	View      View       `json:"view"`
	Tap       *TapResult `json:"tap,omitempty"`
	DoubleTap bool       `json:"double_tap,omitempty"`
}
