// Package selection owns the buyer's current seat selection: which seats are chosen, the
// ticket category they belong to, the priced totals and the hold countdown. It mutates seat
// statuses inside the layout it was built from and is not safe for concurrent use; the chart
// session serialises every call.
package selection

import (
	"seatchart/internal/layout"
	"seatchart/internal/pricing"
)

// DefaultMaxSeats is the global cap on seats in one selection.
const DefaultMaxSeats = 10

// Target addresses a seat as reported by a tap. SectionID and RowID are optional cross-checks.
type Target struct {
	SeatID    string `json:"seat_id" validate:"required"`
	SectionID string `json:"section_id,omitempty"`
	RowID     string `json:"row_id,omitempty"`
}

// SeatRef is one chosen seat with the labels needed for display and checkout.
type SeatRef struct {
	SeatID      string `json:"seat_id"`
	SectionID   string `json:"section_id"`
	RowID       string `json:"row_id"`
	SectionName string `json:"section_name"`
	RowName     string `json:"row_name"`
	SeatNumber  string `json:"seat_number"`
	Label       string `json:"label"`
}

// Selection is the snapshot pushed to the surrounding page.
type Selection struct {
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Fee          pricing.Fee     `json:"fee"`
	Unit         pricing.Figures `json:"unit"`
	Seats        []SeatRef       `json:"seats"`
	Quantity     int             `json:"quantity"`
	Totals       pricing.Figures `json:"totals"`
	Hold         HoldTimer       `json:"hold"`
}

// Outcome reports what a SelectSeat call did.
type Outcome string

const (
	OutcomeSelected   Outcome = "selected"
	OutcomeDeselected Outcome = "deselected"
	OutcomeSwitched   Outcome = "switched"
)

// NoticeKind classifies out-of-band events raised to the buyer.
type NoticeKind string

const (
	NoticeHoldExpired NoticeKind = "hold_expired"
	NoticeSeatRevoked NoticeKind = "seat_revoked"
)

// Notice is an asynchronous user-facing event.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	SeatIDs []string   `json:"seat_ids,omitempty"`
	Message string     `json:"message"`
}

type Options struct {
	// SessionID identifies who "me" is when interpreting held_by.
	SessionID   string
	MaxSeats    int
	HoldSeconds int
	Fee         pricing.Fee

	OnChange func(Selection)
	OnNotice func(Notice)
}

// Machine is the seat selection state machine.
type Machine struct {
	opts     Options
	layout   *layout.Layout
	category *layout.TicketCategory
	seats    []SeatRef
	price    pricing.Breakdown
	timer    HoldTimer
}

// NewMachine builds an empty selection over l. Seats already marked selected in the layout
// are not adopted; they are reset to available.
func NewMachine(l *layout.Layout, opts Options) *Machine {
	if opts.MaxSeats <= 0 {
		opts.MaxSeats = DefaultMaxSeats
	}
	if opts.HoldSeconds <= 0 {
		opts.HoldSeconds = DefaultHoldSeconds
	}
	m := &Machine{
		opts:   opts,
		layout: l,
		timer:  NewHoldTimer(opts.HoldSeconds),
	}
	for si := range l.Sections {
		for ri := range l.Sections[si].Rows {
			for ci := range l.Sections[si].Rows[ri].Seats {
				seat := &l.Sections[si].Rows[ri].Seats[ci]
				if seat.Status == layout.StatusSelected {
					seat.Status = layout.StatusAvailable
				}
			}
		}
	}
	m.recompute()
	return m
}

// Layout returns the seat tree the machine mutates.
func (m *Machine) Layout() *layout.Layout {
	return m.layout
}

// SelectSeat toggles a seat. A seat of another category needs confirm=true, in which case the
// current selection is dropped and a new one starts with this seat.
func (m *Machine) SelectSeat(t Target, confirm bool) (Outcome, error) {
	sec, row, seat, err := m.resolve(t)
	if err != nil {
		return "", err
	}

	if m.IsSelected(seat.ID) {
		m.remove(seat.ID)
		seat.Status = layout.StatusAvailable
		seat.HeldBy = ""
		m.changed()
		return OutcomeDeselected, nil
	}

	if err := m.selectable(seat); err != nil {
		return "", err
	}

	outcome := OutcomeSelected
	if m.category != nil && m.category.ID != seat.Category.ID {
		if !confirm {
			return "", &ValidationError{Reason: ReasonCategoryMismatch, NeedsConfirmation: true, CategoryID: seat.Category.ID}
		}
		m.release()
		outcome = OutcomeSwitched
	}

	if err := m.checkLimits(seat.Category, len(m.seats)+1); err != nil {
		if outcome == OutcomeSwitched {
			m.changed()
		}
		return "", err
	}

	m.add(sec, row, seat)
	m.changed()
	return outcome, nil
}

// SetSelection replaces the selection with targets in one step. Every target is validated
// before anything changes; on error the previous selection is kept.
func (m *Machine) SetSelection(targets []Target) error {
	type picked struct {
		sec  *layout.Section
		row  *layout.Row
		seat *layout.Seat
	}
	picks := make([]picked, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	var category *layout.TicketCategory
	for _, t := range targets {
		sec, row, seat, err := m.resolve(t)
		if err != nil {
			return err
		}
		if seen[seat.ID] {
			continue
		}
		seen[seat.ID] = true
		if !m.IsSelected(seat.ID) {
			if err := m.selectable(seat); err != nil {
				return err
			}
		} else if seat.Category == nil {
			return &ConflictError{Reason: ReasonNoCategory, SeatID: seat.ID}
		}
		if category == nil {
			category = seat.Category
		} else if category.ID != seat.Category.ID {
			return &ValidationError{Reason: ReasonCategoryMismatch, CategoryID: seat.Category.ID}
		}
		picks = append(picks, picked{sec, row, seat})
	}
	if category != nil {
		if err := m.checkLimits(category, len(picks)); err != nil {
			return err
		}
	}

	wasActive := m.timer.Active()
	remaining := m.timer.Remaining
	m.release()
	for _, p := range picks {
		m.add(p.sec, p.row, p.seat)
	}
	if wasActive && m.timer.Active() {
		m.timer.Remaining = remaining
	}
	m.changed()
	return nil
}

// Clear returns every selected seat to available and stops the hold countdown.
func (m *Machine) Clear() {
	if len(m.seats) == 0 {
		return
	}
	m.release()
	m.changed()
}

// MarkBooked promotes every selected seat to booked and clears the selection.
// It returns the ids of the seats that were booked.
func (m *Machine) MarkBooked() []string {
	if len(m.seats) == 0 {
		return nil
	}
	ids := m.SeatIDs()
	for _, id := range ids {
		if _, _, seat, ok := m.layout.Seat(id); ok {
			seat.Status = layout.StatusBooked
			seat.HeldBy = m.opts.SessionID
		}
	}
	m.seats = nil
	m.category = nil
	m.timer.Reset()
	m.changed()
	return ids
}

// ExtendHold adds seconds to an active countdown without touching the selection.
func (m *Machine) ExtendHold(seconds int) bool {
	if !m.timer.Extend(seconds) {
		return false
	}
	m.changed()
	return true
}

// Tick advances the hold countdown by one second. On expiry the selection is cleared, the
// timer returns to Idle and ErrHoldExpired is returned.
func (m *Machine) Tick() error {
	if !m.timer.Tick() {
		return nil
	}
	ids := m.SeatIDs()
	m.release()
	m.changed()
	m.notify(Notice{Kind: NoticeHoldExpired, SeatIDs: ids, Message: ErrHoldExpired.Error()})
	return ErrHoldExpired
}

// Total returns the grand total of the selection.
func (m *Machine) Total() float64 {
	return m.price.Total.Final
}

// Quantity returns the number of selected seats.
func (m *Machine) Quantity() int {
	return len(m.seats)
}

// CategoryCounts returns the number of selected seats per ticket category.
func (m *Machine) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	if m.category != nil && len(m.seats) > 0 {
		counts[m.category.ID] = len(m.seats)
	}
	return counts
}

func (m *Machine) IsSelected(seatID string) bool {
	for _, s := range m.seats {
		if s.SeatID == seatID {
			return true
		}
	}
	return false
}

// IsMaxReached reports whether one more seat of the current category would be rejected.
func (m *Machine) IsMaxReached() bool {
	if len(m.seats) >= m.opts.MaxSeats {
		return true
	}
	return m.category != nil && m.category.Limit > 0 && len(m.seats) >= m.category.Limit
}

// Remaining returns the seconds left on the hold countdown.
func (m *Machine) Remaining() int {
	return m.timer.Remaining
}

func (m *Machine) TimerState() TimerState {
	return m.timer.State
}

// SeatIDs returns the selected seat ids in selection order.
func (m *Machine) SeatIDs() []string {
	ids := make([]string, len(m.seats))
	for i, s := range m.seats {
		ids[i] = s.SeatID
	}
	return ids
}

// Snapshot returns a copy of the current selection.
func (m *Machine) Snapshot() Selection {
	sel := Selection{
		Fee:      m.opts.Fee,
		Unit:     m.price.Unit,
		Seats:    append([]SeatRef{}, m.seats...),
		Quantity: len(m.seats),
		Totals:   m.price.Total,
		Hold:     m.timer,
	}
	if m.category != nil {
		sel.CategoryID = m.category.ID
		sel.CategoryName = m.category.Name
	}
	return sel
}

func (m *Machine) resolve(t Target) (*layout.Section, *layout.Row, *layout.Seat, error) {
	sec, row, seat, ok := m.layout.Seat(t.SeatID)
	if !ok || (t.SectionID != "" && t.SectionID != sec.ID) || (t.RowID != "" && t.RowID != row.ID) {
		return nil, nil, nil, &ConflictError{Reason: ReasonSeatUnknown, SeatID: t.SeatID}
	}
	if seat.IsBlank() {
		return nil, nil, nil, &ConflictError{Reason: ReasonSeatBlank, SeatID: seat.ID}
	}
	return sec, row, seat, nil
}

func (m *Machine) selectable(seat *layout.Seat) error {
	switch {
	case seat.Status == layout.StatusBooked:
		return &ConflictError{Reason: ReasonSeatBooked, SeatID: seat.ID}
	case m.heldByOther(seat):
		return &ConflictError{Reason: ReasonSeatHeld, SeatID: seat.ID}
	case seat.Status == layout.StatusDisabled:
		return &ConflictError{Reason: ReasonSeatDisabled, SeatID: seat.ID}
	case seat.Category == nil:
		return &ConflictError{Reason: ReasonNoCategory, SeatID: seat.ID}
	}
	return nil
}

// heldByOther treats a selected status on a seat this machine did not select as a foreign hold.
func (m *Machine) heldByOther(seat *layout.Seat) bool {
	switch seat.Status {
	case layout.StatusHold:
		return m.opts.SessionID == "" || seat.HeldBy != m.opts.SessionID
	case layout.StatusSelected:
		return !m.IsSelected(seat.ID)
	}
	return false
}

func (m *Machine) checkLimits(category *layout.TicketCategory, quantity int) error {
	if quantity > m.opts.MaxSeats {
		return &ValidationError{Reason: ReasonMaxSeats, Limit: m.opts.MaxSeats, CategoryID: category.ID}
	}
	if category.Limit > 0 && quantity > category.Limit {
		return &ValidationError{Reason: ReasonCategoryLimit, Limit: category.Limit, CategoryID: category.ID}
	}
	return nil
}

func (m *Machine) add(sec *layout.Section, row *layout.Row, seat *layout.Seat) {
	if len(m.seats) == 0 {
		m.category = seat.Category
		m.timer.Start()
	}
	seat.Status = layout.StatusSelected
	m.seats = append(m.seats, SeatRef{
		SeatID:      seat.ID,
		SectionID:   sec.ID,
		RowID:       row.ID,
		SectionName: sec.Name,
		RowName:     row.Title,
		SeatNumber:  seat.Number,
		Label:       row.Label(seat),
	})
}

// remove drops a seat from the list without touching its status.
func (m *Machine) remove(seatID string) bool {
	for i, s := range m.seats {
		if s.SeatID == seatID {
			m.seats = append(m.seats[:i], m.seats[i+1:]...)
			if len(m.seats) == 0 {
				m.category = nil
				m.timer.Reset()
			}
			return true
		}
	}
	return false
}

// release returns every selected seat to available and zeroes the selection.
func (m *Machine) release() {
	for _, s := range m.seats {
		if _, _, seat, ok := m.layout.Seat(s.SeatID); ok && seat.Status == layout.StatusSelected {
			seat.Status = layout.StatusAvailable
			seat.HeldBy = ""
		}
	}
	m.seats = nil
	m.category = nil
	m.timer.Reset()
}

func (m *Machine) recompute() {
	price := 0.0
	if m.category != nil {
		price = m.category.Price
	}
	m.price = pricing.Calculate(price, m.opts.Fee, len(m.seats))
}

func (m *Machine) changed() {
	m.recompute()
	if m.opts.OnChange != nil {
		m.opts.OnChange(m.Snapshot())
	}
}

func (m *Machine) notify(n Notice) {
	if m.opts.OnNotice != nil {
		m.opts.OnNotice(n)
	}
}
