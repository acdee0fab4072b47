package render

import "seatchart/internal/layout"

// VisualState is how a seat is drawn.
type VisualState string

const (
	StateAvailable   VisualState = "available"
	StateSelected    VisualState = "selected"
	StateHeldByMe    VisualState = "held_by_me"
	StateHeldByOther VisualState = "held_by_other"
	StateBooked      VisualState = "booked"
	StateDisabled    VisualState = "disabled"
	StateNoCategory  VisualState = "no_category"
)

// Interactive reports whether a tap on a seat in this state can select or deselect it.
func (v VisualState) Interactive() bool {
	switch v {
	case StateAvailable, StateSelected, StateHeldByMe:
		return true
	}
	return false
}

// StateOf resolves a seat's visual state. Precedence, highest first: booked, held by other,
// disabled, no category, selected, available. A hold by me draws as held_by_me and behaves
// like available.
func StateOf(seat *layout.Seat, selected bool, me string) VisualState {
	switch {
	case seat.Status == layout.StatusBooked:
		return StateBooked
	case seat.Status == layout.StatusHold && (me == "" || seat.HeldBy != me):
		return StateHeldByOther
	case seat.Status == layout.StatusSelected && !selected:
		return StateHeldByOther
	case seat.Status == layout.StatusDisabled:
		return StateDisabled
	case seat.Category == nil:
		return StateNoCategory
	case selected:
		return StateSelected
	case seat.Status == layout.StatusHold:
		return StateHeldByMe
	}
	return StateAvailable
}
