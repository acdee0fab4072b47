package render

import (
	"testing"
	"time"

	"seatchart/internal/geometry"
	"seatchart/internal/layout"
)

var standard = &layout.TicketCategory{ID: "std", Name: "Standard", Price: 300}

func chart() *layout.Layout {
	l := &layout.Layout{
		ID:    "layout-1",
		Stage: layout.Stage{X: 0, Y: 0, Width: 200, Height: 40, Name: "Screen"},
		Sections: []layout.Section{
			{
				ID: "front", Name: "Front", X: 0, Y: 100, Width: 200, Height: 60,
				Rows: []layout.Row{{ID: "r1", Title: "A", Seats: []layout.Seat{
					{ID: "A1", Number: "1", X: 20, Y: 20, Radius: 10, Status: layout.StatusAvailable, Category: standard},
					{ID: "gap", Number: "", X: 45, Y: 20, Radius: 10, Status: layout.StatusBlank},
					{ID: "A2", Number: "2", X: 70, Y: 20, Radius: 10, Status: layout.StatusBooked, Category: standard},
				}}},
			},
			{
				ID: "back", Name: "Back", X: 0, Y: 1000, Width: 200, Height: 60,
				Rows: []layout.Row{{ID: "r2", Title: "B", Seats: []layout.Seat{
					{ID: "B1", Number: "1", X: 20, Y: 20, Radius: 2, Status: layout.StatusAvailable, Category: standard},
				}}},
			},
		},
	}
	l.Reindex()
	return l
}

func TestStateOf_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		seat     layout.Seat
		selected bool
		want     VisualState
	}{
		{"booked beats everything", layout.Seat{Status: layout.StatusBooked}, true, StateBooked},
		{"held by other", layout.Seat{Status: layout.StatusHold, HeldBy: "other", Category: standard}, false, StateHeldByOther},
		{"anonymous hold", layout.Seat{Status: layout.StatusHold, Category: standard}, false, StateHeldByOther},
		{"selected elsewhere", layout.Seat{Status: layout.StatusSelected, Category: standard}, false, StateHeldByOther},
		{"disabled without category", layout.Seat{Status: layout.StatusDisabled}, false, StateDisabled},
		{"no category", layout.Seat{Status: layout.StatusAvailable}, false, StateNoCategory},
		{"selected", layout.Seat{Status: layout.StatusSelected, Category: standard}, true, StateSelected},
		{"held by me", layout.Seat{Status: layout.StatusHold, HeldBy: "me", Category: standard}, false, StateHeldByMe},
		{"held by me and selected", layout.Seat{Status: layout.StatusHold, HeldBy: "me", Category: standard}, true, StateSelected},
		{"available", layout.Seat{Status: layout.StatusAvailable, Category: standard}, false, StateAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(&tt.seat, tt.selected, "me"); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisualState_Interactive(t *testing.T) {
	if !StateHeldByMe.Interactive() || !StateAvailable.Interactive() {
		t.Errorf("held_by_me and available must be interactive")
	}
	if StateHeldByOther.Interactive() || StateBooked.Interactive() {
		t.Errorf("held_by_other and booked must not be interactive")
	}
}

func TestBuild_ScreenGeometry(t *testing.T) {
	tf := geometry.Transform{Scale: 2, Pan: geometry.Point{X: 10, Y: 5}}
	f := Build(Input{
		Layout:    chart(),
		Selected:  map[string]bool{"A1": true},
		Transform: tf,
		Viewport:  geometry.Size{Width: 800, Height: 600},
	}, nil)

	if len(f.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(f.Sections))
	}
	if len(f.Seats) != 3 {
		t.Fatalf("got %d seats, want 3 without the blank", len(f.Seats))
	}
	a1 := f.Seats[0]
	if want := (geometry.Point{X: 50, Y: 245}); a1.Center != want {
		t.Errorf("got centre %v, want %v", a1.Center, want)
	}
	if a1.Radius != 20 || a1.Rect.Width != 40 {
		t.Errorf("got radius %v rect %+v, want 20 / 40 wide", a1.Radius, a1.Rect)
	}
	if a1.State != StateSelected || a1.Label != "A1" {
		t.Errorf("got %v %q, want selected A1", a1.State, a1.Label)
	}
	if f.Seats[1].State != StateBooked {
		t.Errorf("got %v, want booked", f.Seats[1].State)
	}
	if f.Stage.Rect != (geometry.Rect{X: 10, Y: 5, Width: 400, Height: 80}) {
		t.Errorf("got stage %+v", f.Stage.Rect)
	}
}

func TestBuild_Culled(t *testing.T) {
	f := Build(Input{Layout: chart(), Visible: []string{"front"}, Transform: geometry.Identity}, nil)
	if len(f.Sections) != 1 || f.Sections[0].ID != "front" {
		t.Errorf("got %+v, want only front", f.Sections)
	}
	for _, s := range f.Seats {
		if s.SectionID != "front" {
			t.Errorf("culled section seat %s drawn", s.ID)
		}
	}

	empty := Build(Input{Layout: chart(), Visible: []string{}, Transform: geometry.Identity}, nil)
	if len(empty.Seats) != 0 || len(empty.Sections) != 0 {
		t.Errorf("empty visible set drew %d seats", len(empty.Seats))
	}
}

func TestHitTest(t *testing.T) {
	f := Build(Input{Layout: chart(), Transform: geometry.Identity}, nil)

	target, ok := HitTest(f, geometry.Point{X: 25, Y: 122})
	if !ok || target.SeatID != "A1" || target.SectionID != "front" || target.RowID != "r1" {
		t.Errorf("got %+v %v, want A1 in front/r1", target, ok)
	}
	// Booked seats still resolve; the selection machine decides.
	if target, ok := HitTest(f, geometry.Point{X: 70, Y: 120}); !ok || target.SeatID != "A2" {
		t.Errorf("got %+v %v, want A2", target, ok)
	}
	if _, ok := HitTest(f, geometry.Point{X: 45, Y: 120}); ok {
		t.Errorf("blank seat was hit")
	}
	// B1 has a 2px radius; the minimum hit radius still catches a 5px miss.
	if target, ok := HitTest(f, geometry.Point{X: 25, Y: 1020}); !ok || target.SeatID != "B1" {
		t.Errorf("got %+v %v, want B1 via minimum hit radius", target, ok)
	}
	if _, ok := HitTest(f, geometry.Point{X: 500, Y: 500}); ok {
		t.Errorf("empty space was hit")
	}
}

func TestSpriteCache_ReusesGeometry(t *testing.T) {
	cache := NewSpriteCache(1, time.Minute)
	l := chart()
	in := Input{Layout: l, Version: "v1", Transform: geometry.Identity}

	first := Build(in, cache)
	if cache.Len() != 1 {
		t.Errorf("got %d entries, want 1 with size bound 1", cache.Len())
	}

	_, _, seat, _ := l.Seat("A1")
	seat.Status = layout.StatusBooked
	second := Build(in, cache)
	if len(second.Seats) != len(first.Seats) {
		t.Fatalf("got %d seats, want %d", len(second.Seats), len(first.Seats))
	}
	if second.Seats[0].State != StateBooked {
		t.Errorf("cached geometry hid a status change: got %v", second.Seats[0].State)
	}

	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("got %d entries after purge", cache.Len())
	}
}

func TestBoxesOf(t *testing.T) {
	boxes := BoxesOf(chart())
	if len(boxes) != 2 || boxes[1].ID != "back" || boxes[1].Rect.Y != 1000 {
		t.Errorf("got %+v", boxes)
	}
}
