package selection

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable rejection code surfaced to the buyer.
type Reason string

const (
	// Validation reasons: recovered locally, shown as a warning.
	ReasonCategoryMismatch Reason = "category_mismatch"
	ReasonMaxSeats         Reason = "max_seats_reached"
	ReasonCategoryLimit    Reason = "category_limit_reached"

	// Conflict reasons: the seat changed between render and tap, or can never be selected.
	ReasonSeatBooked   Reason = "seat_booked"
	ReasonSeatHeld     Reason = "seat_held"
	ReasonSeatDisabled Reason = "seat_disabled"
	ReasonSeatBlank    Reason = "seat_blank"
	ReasonNoCategory   Reason = "no_category"
	ReasonSeatUnknown  Reason = "seat_unknown"
)

// ErrHoldExpired is raised when the hold countdown reaches zero. It is terminal for the selection.
var ErrHoldExpired = errors.New("seat hold expired")

// ValidationError rejects a selection that breaks a selection rule.
type ValidationError struct {
	Reason            Reason `json:"reason"`
	NeedsConfirmation bool   `json:"needs_confirmation,omitempty"`
	Limit             int    `json:"limit,omitempty"`
	CategoryID        string `json:"category_id,omitempty"`
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonCategoryMismatch:
		return "seat belongs to a different ticket category; confirm to replace the current selection"
	case ReasonMaxSeats:
		return fmt.Sprintf("you can select at most %d seats", e.Limit)
	case ReasonCategoryLimit:
		return fmt.Sprintf("you can select at most %d seats in this category", e.Limit)
	}
	return string(e.Reason)
}

// ConflictError rejects a seat whose status forbids selection.
type ConflictError struct {
	Reason Reason `json:"reason"`
	SeatID string `json:"seat_id"`
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonSeatBooked:
		return fmt.Sprintf("seat %s is already booked", e.SeatID)
	case ReasonSeatHeld:
		return fmt.Sprintf("seat %s is held by another buyer", e.SeatID)
	case ReasonSeatDisabled:
		return fmt.Sprintf("seat %s is not available", e.SeatID)
	case ReasonNoCategory:
		return fmt.Sprintf("seat %s has no ticket assigned", e.SeatID)
	case ReasonSeatUnknown:
		return fmt.Sprintf("seat %s not found", e.SeatID)
	}
	return fmt.Sprintf("seat %s cannot be selected: %s", e.SeatID, e.Reason)
}

// ReasonOf extracts the rejection reason from a selection error, or "" when err is not one.
func ReasonOf(err error) Reason {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	var cerr *ConflictError
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return ""
}
