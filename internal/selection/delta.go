package selection

import (
	"fmt"

	"seatchart/internal/layout"
)

// Delta is one remote seat-status change.
type Delta struct {
	SeatID    string            `json:"seat_id"`
	SectionID string            `json:"section_id,omitempty"`
	RowID     string            `json:"row_id,omitempty"`
	Status    layout.SeatStatus `json:"status"`
	HeldBy    string            `json:"held_by,omitempty"`
}

// DeltaResult reports how a delta was merged.
type DeltaResult struct {
	Applied bool     `json:"applied"`
	Revoked *SeatRef `json:"revoked,omitempty"`
}

// ApplyDelta merges a remote status change into the seat tree. Local intent wins on a
// selected seat unless the delta claims it for someone else (a foreign hold, a booking or a
// disable), in which case the seat is dropped from the selection and a seat_revoked notice is
// raised. Unselected seats take the remote status as-is. Deltas for unknown or blank seats are
// ignored.
func (m *Machine) ApplyDelta(d Delta) DeltaResult {
	_, _, seat, ok := m.layout.Seat(d.SeatID)
	if !ok || seat.IsBlank() {
		return DeltaResult{}
	}
	status := d.Status
	if !status.IsValid() {
		status = layout.ParseSeatStatus(string(status))
	}
	if status == layout.StatusBlank {
		return DeltaResult{}
	}

	if !m.IsSelected(seat.ID) {
		seat.Status = status
		seat.HeldBy = d.HeldBy
		if status == layout.StatusAvailable {
			seat.HeldBy = ""
		}
		return DeltaResult{Applied: true}
	}

	if !m.claimsExclusive(status, d.HeldBy) {
		if status == layout.StatusHold {
			seat.HeldBy = d.HeldBy
		}
		return DeltaResult{Applied: false}
	}

	ref := m.ref(seat.ID)
	m.remove(seat.ID)
	seat.Status = status
	seat.HeldBy = d.HeldBy
	m.changed()
	m.notify(Notice{
		Kind:    NoticeSeatRevoked,
		SeatIDs: []string{seat.ID},
		Message: fmt.Sprintf("seat %s is no longer available and was removed from your selection", ref.Label),
	})
	return DeltaResult{Applied: true, Revoked: &ref}
}

// claimsExclusive reports whether a remote status takes a locally selected seat away.
func (m *Machine) claimsExclusive(status layout.SeatStatus, heldBy string) bool {
	mine := heldBy != "" && heldBy == m.opts.SessionID
	switch status {
	case layout.StatusHold, layout.StatusBooked:
		return !mine
	case layout.StatusDisabled:
		return true
	}
	return false
}

func (m *Machine) ref(seatID string) SeatRef {
	for _, s := range m.seats {
		if s.SeatID == seatID {
			return s
		}
	}
	return SeatRef{SeatID: seatID}
}
