package selection

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"seatchart/internal/layout"
	"seatchart/internal/pricing"
)

var (
	gold   = &layout.TicketCategory{ID: "gold", Name: "Gold", Price: 500}
	silver = &layout.TicketCategory{ID: "silver", Name: "Silver", Price: 250, Limit: 4}
)

// testLayout builds one section with row A of gold seats A1..A8, row B of silver seats B1..B8
// and row C holding a blank, a booked, a disabled and an unassigned seat.
func testLayout() *layout.Layout {
	row := func(title string, cat *layout.TicketCategory) layout.Row {
		r := layout.Row{ID: "row-" + title, Title: title}
		for i := 1; i <= 8; i++ {
			r.Seats = append(r.Seats, layout.Seat{
				ID:       fmt.Sprintf("%s%d", title, i),
				Number:   fmt.Sprint(i),
				X:        float64(i * 25),
				Y:        10,
				Radius:   10,
				Status:   layout.StatusAvailable,
				Category: cat,
			})
		}
		return r
	}
	special := layout.Row{ID: "row-C", Title: "C", Seats: []layout.Seat{
		{ID: "C1", Number: "1", Status: layout.StatusBlank, Category: gold},
		{ID: "C2", Number: "2", Status: layout.StatusBooked, Category: gold},
		{ID: "C3", Number: "3", Status: layout.StatusDisabled, Category: gold},
		{ID: "C4", Number: "4", Status: layout.StatusAvailable},
		{ID: "C5", Number: "5", Status: layout.StatusHold, HeldBy: "other", Category: gold},
		{ID: "C6", Number: "6", Status: layout.StatusHold, HeldBy: "me", Category: gold},
	}}
	l := &layout.Layout{
		ID:      "layout-1",
		EventID: "event-1",
		Sections: []layout.Section{{
			ID:     "sec-1",
			Name:   "Stalls",
			Width:  300,
			Height: 120,
			Rows:   []layout.Row{row("A", gold), row("B", silver), special},
		}},
	}
	l.Reindex()
	return l
}

func newMachine(opts Options) *Machine {
	if opts.SessionID == "" {
		opts.SessionID = "me"
	}
	return NewMachine(testLayout(), opts)
}

func seatStatus(m *Machine, id string) layout.SeatStatus {
	_, _, seat, _ := m.Layout().Seat(id)
	return seat.Status
}

func TestMachine_SelectAndDeselect(t *testing.T) {
	m := newMachine(Options{})

	out, err := m.SelectSeat(Target{SeatID: "A1", SectionID: "sec-1", RowID: "row-A"}, false)
	if err != nil {
		t.Fatalf("SelectSeat: %v", err)
	}
	if out != OutcomeSelected {
		t.Errorf("got %v, want %v", out, OutcomeSelected)
	}
	if got := seatStatus(m, "A1"); got != layout.StatusSelected {
		t.Errorf("got status %v, want selected", got)
	}
	if got := m.TimerState(); got != TimerActive {
		t.Errorf("got timer %v, want active", got)
	}

	out, err = m.SelectSeat(Target{SeatID: "A1"}, false)
	if err != nil {
		t.Fatalf("SelectSeat toggle: %v", err)
	}
	if out != OutcomeDeselected {
		t.Errorf("got %v, want %v", out, OutcomeDeselected)
	}
	if m.Quantity() != 0 {
		t.Errorf("got quantity %d, want 0", m.Quantity())
	}
	if got := seatStatus(m, "A1"); got != layout.StatusAvailable {
		t.Errorf("got status %v, want available", got)
	}
	if got := m.TimerState(); got != TimerIdle {
		t.Errorf("got timer %v, want idle", got)
	}
	if m.Remaining() != DefaultHoldSeconds {
		t.Errorf("got remaining %d, want %d", m.Remaining(), DefaultHoldSeconds)
	}
}

func TestMachine_SnapshotCarriesLabels(t *testing.T) {
	m := newMachine(Options{})
	if _, err := m.SelectSeat(Target{SeatID: "A3"}, false); err != nil {
		t.Fatalf("SelectSeat: %v", err)
	}
	snap := m.Snapshot()
	if snap.CategoryID != "gold" || snap.CategoryName != "Gold" {
		t.Errorf("got category %q/%q, want gold/Gold", snap.CategoryID, snap.CategoryName)
	}
	want := SeatRef{SeatID: "A3", SectionID: "sec-1", RowID: "row-A", SectionName: "Stalls", RowName: "A", SeatNumber: "3", Label: "A3"}
	if len(snap.Seats) != 1 || snap.Seats[0] != want {
		t.Errorf("got %+v, want [%+v]", snap.Seats, want)
	}
	if snap.Hold.State != TimerActive {
		t.Errorf("got hold %v, want active", snap.Hold.State)
	}
}

func TestMachine_Rejections(t *testing.T) {
	tests := []struct {
		seat string
		want Reason
	}{
		{"C1", ReasonSeatBlank},
		{"C2", ReasonSeatBooked},
		{"C3", ReasonSeatDisabled},
		{"C4", ReasonNoCategory},
		{"C5", ReasonSeatHeld},
		{"Z9", ReasonSeatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.seat, func(t *testing.T) {
			m := newMachine(Options{})
			_, err := m.SelectSeat(Target{SeatID: tt.seat}, false)
			var cerr *ConflictError
			if !errors.As(err, &cerr) {
				t.Fatalf("got %v, want ConflictError", err)
			}
			if cerr.Reason != tt.want {
				t.Errorf("got %v, want %v", cerr.Reason, tt.want)
			}
			if m.Quantity() != 0 {
				t.Errorf("got quantity %d, want 0", m.Quantity())
			}
		})
	}
}

func TestMachine_HeldByMeIsSelectable(t *testing.T) {
	m := newMachine(Options{})
	if _, err := m.SelectSeat(Target{SeatID: "C6"}, false); err != nil {
		t.Errorf("got %v, want seat held by this session to be selectable", err)
	}
}

func TestMachine_WrongRowIsUnknown(t *testing.T) {
	m := newMachine(Options{})
	_, err := m.SelectSeat(Target{SeatID: "A1", RowID: "row-B"}, false)
	if ReasonOf(err) != ReasonSeatUnknown {
		t.Errorf("got %v, want %v", ReasonOf(err), ReasonSeatUnknown)
	}
}

func TestMachine_IdempotentTotals(t *testing.T) {
	fee := pricing.Fee{Type: pricing.FeePercentage, Magnitude: 10}
	m := newMachine(Options{Fee: fee})
	unit := pricing.Unit(gold.Price, fee)

	ops := []string{"A1", "A2", "A3", "A2", "A4", "A5", "A1", "A6", "A2", "A7", "A5"}
	selected := map[string]bool{}
	for _, id := range ops {
		if _, err := m.SelectSeat(Target{SeatID: id}, false); err != nil {
			t.Fatalf("SelectSeat(%s): %v", id, err)
		}
		selected[id] = !selected[id]

		want := 0
		for _, on := range selected {
			if on {
				want++
			}
		}
		if m.Quantity() != want {
			t.Fatalf("got quantity %d, want %d", m.Quantity(), want)
		}
		if got, exp := m.Total(), pricing.Round2(unit.Final*float64(want)); math.Abs(got-exp) > 0.001 {
			t.Fatalf("got total %v, want %v", got, exp)
		}
	}
}

func TestMachine_PercentageExample(t *testing.T) {
	m := newMachine(Options{Fee: pricing.Fee{Type: pricing.FeePercentage, Magnitude: 10}})
	for _, id := range []string{"A1", "A2", "A3"} {
		if _, err := m.SelectSeat(Target{SeatID: id}, false); err != nil {
			t.Fatalf("SelectSeat: %v", err)
		}
	}
	snap := m.Snapshot()
	if snap.Unit.ConvenienceFee != 50 || snap.Unit.CGST != 4.5 || snap.Unit.SGST != 4.5 || snap.Unit.Final != 559 {
		t.Errorf("got unit %+v, want fee 50, gst 4.5/4.5, final 559", snap.Unit)
	}
	if m.Total() != 1677 {
		t.Errorf("got total %v, want 1677", m.Total())
	}
}

func TestMachine_CategorySwitch(t *testing.T) {
	m := newMachine(Options{})
	for _, id := range []string{"A1", "A2", "A3"} {
		if _, err := m.SelectSeat(Target{SeatID: id}, false); err != nil {
			t.Fatalf("SelectSeat: %v", err)
		}
	}

	_, err := m.SelectSeat(Target{SeatID: "B1"}, false)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonCategoryMismatch || !verr.NeedsConfirmation {
		t.Fatalf("got %v, want category_mismatch needing confirmation", err)
	}
	if m.Quantity() != 3 {
		t.Errorf("got quantity %d, want unconfirmed switch to keep 3", m.Quantity())
	}

	out, err := m.SelectSeat(Target{SeatID: "B1"}, true)
	if err != nil {
		t.Fatalf("confirmed switch: %v", err)
	}
	if out != OutcomeSwitched {
		t.Errorf("got %v, want %v", out, OutcomeSwitched)
	}
	if ids := m.SeatIDs(); len(ids) != 1 || ids[0] != "B1" {
		t.Errorf("got %v, want [B1]", ids)
	}
	for _, id := range []string{"A1", "A2", "A3"} {
		if got := seatStatus(m, id); got != layout.StatusAvailable {
			t.Errorf("%s: got %v, want available", id, got)
		}
	}
	if got := m.CategoryCounts(); got["silver"] != 1 || len(got) != 1 {
		t.Errorf("got %v, want map[silver:1]", got)
	}
}

func TestMachine_Limits(t *testing.T) {
	tests := []struct {
		name     string
		maxSeats int
		row      string
		limit    int
		reason   Reason
	}{
		{"global cap below category limit", 3, "B", 3, ReasonMaxSeats},
		{"category limit below global cap", 10, "B", 4, ReasonCategoryLimit},
		{"global cap without category limit", 5, "A", 5, ReasonMaxSeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(Options{MaxSeats: tt.maxSeats})
			for i := 1; i <= tt.limit; i++ {
				if _, err := m.SelectSeat(Target{SeatID: fmt.Sprintf("%s%d", tt.row, i)}, false); err != nil {
					t.Fatalf("seat %d of %d rejected: %v", i, tt.limit, err)
				}
			}
			if !m.IsMaxReached() {
				t.Errorf("got IsMaxReached false at the limit")
			}
			_, err := m.SelectSeat(Target{SeatID: fmt.Sprintf("%s%d", tt.row, tt.limit+1)}, false)
			if ReasonOf(err) != tt.reason {
				t.Errorf("got %v, want %v", err, tt.reason)
			}
			if m.Quantity() != tt.limit {
				t.Errorf("got quantity %d, want %d", m.Quantity(), tt.limit)
			}
		})
	}
}

func TestMachine_ClearAndMarkBooked(t *testing.T) {
	m := newMachine(Options{})
	m.SelectSeat(Target{SeatID: "A1"}, false)
	m.SelectSeat(Target{SeatID: "A2"}, false)

	m.Clear()
	if m.Quantity() != 0 || m.TimerState() != TimerIdle {
		t.Errorf("got quantity %d timer %v, want 0 idle", m.Quantity(), m.TimerState())
	}
	if got := seatStatus(m, "A1"); got != layout.StatusAvailable {
		t.Errorf("got %v, want available", got)
	}

	m.SelectSeat(Target{SeatID: "A3"}, false)
	m.SelectSeat(Target{SeatID: "A4"}, false)
	ids := m.MarkBooked()
	if len(ids) != 2 {
		t.Errorf("got %v, want two booked ids", ids)
	}
	for _, id := range []string{"A3", "A4"} {
		if got := seatStatus(m, id); got != layout.StatusBooked {
			t.Errorf("%s: got %v, want booked", id, got)
		}
	}
	if m.Quantity() != 0 || m.TimerState() != TimerIdle || m.Total() != 0 {
		t.Errorf("got quantity %d timer %v total %v, want empty idle selection", m.Quantity(), m.TimerState(), m.Total())
	}
}

func TestMachine_HoldExpiry(t *testing.T) {
	var notices []Notice
	m := newMachine(Options{OnNotice: func(n Notice) { notices = append(notices, n) }})
	if _, err := m.SelectSeat(Target{SeatID: "A1"}, false); err != nil {
		t.Fatalf("SelectSeat: %v", err)
	}

	var expired error
	for i := 0; i < 600; i++ {
		if err := m.Tick(); err != nil {
			if i != 599 {
				t.Fatalf("expired after %d ticks, want 600", i+1)
			}
			expired = err
		}
	}
	if !errors.Is(expired, ErrHoldExpired) {
		t.Errorf("got %v, want ErrHoldExpired", expired)
	}
	if m.Quantity() != 0 {
		t.Errorf("got quantity %d, want 0", m.Quantity())
	}
	if m.TimerState() != TimerIdle {
		t.Errorf("got %v, want idle", m.TimerState())
	}
	if got := seatStatus(m, "A1"); got != layout.StatusAvailable {
		t.Errorf("got %v, want available", got)
	}
	if len(notices) != 1 || notices[0].Kind != NoticeHoldExpired {
		t.Errorf("got %+v, want one hold_expired notice", notices)
	}
	if err := m.Tick(); err != nil {
		t.Errorf("got %v from idle tick, want nil", err)
	}
}

func TestMachine_ExtendHold(t *testing.T) {
	m := newMachine(Options{HoldSeconds: 5})
	if m.ExtendHold(30) {
		t.Errorf("extended an idle timer")
	}
	m.SelectSeat(Target{SeatID: "A1"}, false)
	m.Tick()
	if !m.ExtendHold(30) {
		t.Fatalf("ExtendHold on active timer returned false")
	}
	if m.Remaining() != 34 {
		t.Errorf("got %d, want 34", m.Remaining())
	}
	if m.Quantity() != 1 {
		t.Errorf("got quantity %d, want 1", m.Quantity())
	}
}

func TestMachine_SetSelection(t *testing.T) {
	fee := pricing.Fee{Type: pricing.FeeFlat, Magnitude: 20}
	m := newMachine(Options{Fee: fee})
	m.SelectSeat(Target{SeatID: "A1"}, false)

	if err := m.SetSelection([]Target{{SeatID: "A2"}, {SeatID: "A3"}, {SeatID: "A2"}}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if ids := m.SeatIDs(); len(ids) != 2 || ids[0] != "A2" || ids[1] != "A3" {
		t.Errorf("got %v, want [A2 A3]", ids)
	}
	if got := seatStatus(m, "A1"); got != layout.StatusAvailable {
		t.Errorf("got %v, want A1 released", got)
	}

	// Bulk and incremental paths must price identically.
	inc := newMachine(Options{Fee: fee})
	inc.SelectSeat(Target{SeatID: "A2"}, false)
	inc.SelectSeat(Target{SeatID: "A3"}, false)
	if m.Snapshot().Totals != inc.Snapshot().Totals {
		t.Errorf("got %+v, want %+v", m.Snapshot().Totals, inc.Snapshot().Totals)
	}

	err := m.SetSelection([]Target{{SeatID: "A4"}, {SeatID: "B1"}})
	if ReasonOf(err) != ReasonCategoryMismatch {
		t.Errorf("got %v, want category_mismatch", err)
	}
	if ids := m.SeatIDs(); len(ids) != 2 {
		t.Errorf("got %v, want selection kept after failed bulk set", ids)
	}

	if err := m.SetSelection(nil); err != nil {
		t.Fatalf("SetSelection(nil): %v", err)
	}
	if m.Quantity() != 0 || m.TimerState() != TimerIdle {
		t.Errorf("got quantity %d timer %v, want empty idle", m.Quantity(), m.TimerState())
	}
}

func TestMachine_OnChange(t *testing.T) {
	var snaps []Selection
	m := newMachine(Options{OnChange: func(s Selection) { snaps = append(snaps, s) }})
	m.SelectSeat(Target{SeatID: "A1"}, false)
	m.SelectSeat(Target{SeatID: "A2"}, false)
	m.SelectSeat(Target{SeatID: "C2"}, false)
	m.Clear()

	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	if snaps[1].Quantity != 2 || snaps[2].Quantity != 0 {
		t.Errorf("got quantities %d,%d, want 2,0", snaps[1].Quantity, snaps[2].Quantity)
	}
}
