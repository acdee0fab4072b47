package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"seatchart/internal/geometry"
)

// SeatStatus is the lifecycle state of a single seat.
type SeatStatus string

const (
	StatusAvailable SeatStatus = "available"
	StatusSelected  SeatStatus = "selected"
	StatusHold      SeatStatus = "hold"
	StatusBooked    SeatStatus = "booked"
	StatusDisabled  SeatStatus = "disabled"
	StatusBlank     SeatStatus = "blank"
)

// ParseSeatStatus normalises a status string. Unknown values fall back to available.
func ParseSeatStatus(s string) SeatStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "selected":
		return StatusSelected
	case "hold", "held", "locked", "blocked_by_user":
		return StatusHold
	case "booked", "sold", "reserved":
		return StatusBooked
	case "disabled", "blocked", "unavailable":
		return StatusDisabled
	case "blank", "space", "gap":
		return StatusBlank
	default:
		return StatusAvailable
	}
}

// IsValid checks if the status is one of the known values
func (s SeatStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusSelected, StatusHold, StatusBooked, StatusDisabled, StatusBlank:
		return true
	}
	return false
}

// StageShape is how the stage is drawn.
type StageShape string

const (
	StageStraight StageShape = "straight"
	StageCurved   StageShape = "curved"
)

func parseStageShape(s string) StageShape {
	if strings.EqualFold(strings.TrimSpace(s), string(StageCurved)) {
		return StageCurved
	}
	return StageStraight
}

// Stage is immutable after layout load.
type Stage struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Shape  StageShape `json:"shape"`
	Name   string     `json:"name"`
}

// Rect returns the stage bounding box in chart space.
func (s Stage) Rect() geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// TicketCategory is a priced ticket type. Limit is the per-user selection limit; zero means none.
type TicketCategory struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Limit int     `json:"limit,omitempty"`
}

// Seat positions are relative to the owning section.
type Seat struct {
	ID       string          `json:"id"`
	Number   string          `json:"number"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Radius   float64         `json:"radius"`
	Status   SeatStatus      `json:"status"`
	HeldBy   string          `json:"held_by,omitempty"`
	Category *TicketCategory `json:"category,omitempty"`
}

// IsBlank reports whether the seat is a spacing placeholder.
func (s *Seat) IsBlank() bool {
	return s.Status == StatusBlank
}

type Row struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Seats []Seat `json:"seats"`
}

// Label returns the row-prefixed seat label, e.g. "A12".
func (r *Row) Label(seat *Seat) string {
	return r.Title + seat.Number
}

type Section struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rows   []Row   `json:"rows"`
}

// Rect returns the section bounding box in chart space.
func (s *Section) Rect() geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// SeatCenter returns the absolute chart-space centre of a seat in this section.
func (s *Section) SeatCenter(seat *Seat) geometry.Point {
	return geometry.Point{X: s.X + seat.X, Y: s.Y + seat.Y}
}

// SeatLocation addresses a seat inside the section tree.
type SeatLocation struct {
	Section int
	Row     int
	Seat    int
}

// Layout is an ordered Sections -> Rows -> Seats tree plus the stage.
type Layout struct {
	ID         string           `json:"id"`
	EventID    string           `json:"event_id"`
	Name       string           `json:"name"`
	Stage      Stage            `json:"stage"`
	Sections   []Section        `json:"sections"`
	Categories []TicketCategory `json:"ticket_categories,omitempty"`

	index map[string]SeatLocation
}

// Reindex rebuilds the seat lookup table. Call after mutating the tree shape.
func (l *Layout) Reindex() {
	l.index = make(map[string]SeatLocation)
	for si := range l.Sections {
		for ri := range l.Sections[si].Rows {
			for ci := range l.Sections[si].Rows[ri].Seats {
				l.index[l.Sections[si].Rows[ri].Seats[ci].ID] = SeatLocation{Section: si, Row: ri, Seat: ci}
			}
		}
	}
}

// Locate finds a seat by id.
func (l *Layout) Locate(seatID string) (SeatLocation, bool) {
	if l.index == nil {
		l.Reindex()
	}
	loc, ok := l.index[seatID]
	return loc, ok
}

// At resolves a location to its section, row and seat.
func (l *Layout) At(loc SeatLocation) (*Section, *Row, *Seat) {
	sec := &l.Sections[loc.Section]
	row := &sec.Rows[loc.Row]
	return sec, row, &row.Seats[loc.Seat]
}

// Seat finds a seat by id together with its section and row.
func (l *Layout) Seat(seatID string) (*Section, *Row, *Seat, bool) {
	loc, ok := l.Locate(seatID)
	if !ok {
		return nil, nil, nil, false
	}
	sec, row, seat := l.At(loc)
	return sec, row, seat, true
}

// Section finds a section by id.
func (l *Layout) Section(sectionID string) (*Section, bool) {
	for i := range l.Sections {
		if l.Sections[i].ID == sectionID {
			return &l.Sections[i], true
		}
	}
	return nil, false
}

// Bounds returns the union bounding box of the stage and every section.
func (l *Layout) Bounds() geometry.Rect {
	rects := make([]geometry.Rect, 0, len(l.Sections))
	for i := range l.Sections {
		rects = append(rects, l.Sections[i].Rect())
	}
	return geometry.ContentBounds(l.Stage.Rect(), rects...)
}

// SeatCount returns the number of non-blank seats.
func (l *Layout) SeatCount() int {
	n := 0
	for si := range l.Sections {
		for ri := range l.Sections[si].Rows {
			for ci := range l.Sections[si].Rows[ri].Seats {
				if !l.Sections[si].Rows[ri].Seats[ci].IsBlank() {
					n++
				}
			}
		}
	}
	return n
}

// Signature identifies the content shape. Two layouts with the same signature frame identically.
func (l *Layout) Signature() string {
	b := l.Bounds()
	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return fmt.Sprintf("%g:%g:%g:%g:%d:%s", r(b.X), r(b.Y), r(b.Width), r(b.Height), len(l.Sections), l.Stage.Shape)
}

// GeometryHash fingerprints everything a frame draws or hit-tests: section boxes, row order and
// each seat's id, position and radius. Statuses are not part of it.
func (l *Layout) GeometryHash() string {
	h := xxhash.New()
	f := func(v float64) {
		_, _ = h.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		_, _ = h.WriteString(",")
	}
	f(l.Stage.X)
	f(l.Stage.Y)
	f(l.Stage.Width)
	f(l.Stage.Height)
	_, _ = h.WriteString(string(l.Stage.Shape))
	for si := range l.Sections {
		sec := &l.Sections[si]
		_, _ = h.WriteString("|s:" + sec.ID + ":")
		f(sec.X)
		f(sec.Y)
		f(sec.Width)
		f(sec.Height)
		for ri := range sec.Rows {
			_, _ = h.WriteString("|r:" + sec.Rows[ri].ID + ":")
			for ci := range sec.Rows[ri].Seats {
				seat := &sec.Rows[ri].Seats[ci]
				_, _ = h.WriteString(seat.ID + ":")
				f(seat.X)
				f(seat.Y)
				f(seat.Radius)
				if seat.IsBlank() {
					_, _ = h.WriteString("b")
				}
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SeatIDs lists every non-blank seat in tree order.
func (l *Layout) SeatIDs() []string {
	ids := make([]string, 0, len(l.index))
	for si := range l.Sections {
		for ri := range l.Sections[si].Rows {
			for ci := range l.Sections[si].Rows[ri].Seats {
				if seat := &l.Sections[si].Rows[ri].Seats[ci]; !seat.IsBlank() {
					ids = append(ids, seat.ID)
				}
			}
		}
	}
	return ids
}

// SeatState is the live part of a seat.
type SeatState struct {
	Status SeatStatus `json:"status"`
	HeldBy string     `json:"held_by,omitempty"`
}

// ApplyStatuses overwrites the live state of every seat named in states. Blank seats keep their
// placeholder status. It returns how many seats changed.
func (l *Layout) ApplyStatuses(states map[string]SeatState) int {
	changed := 0
	for id, st := range states {
		_, _, seat, ok := l.Seat(id)
		if !ok || seat.IsBlank() || st.Status == StatusBlank {
			continue
		}
		heldBy := ""
		if st.Status == StatusHold {
			heldBy = st.HeldBy
		}
		if seat.Status == st.Status && seat.HeldBy == heldBy {
			continue
		}
		seat.Status, seat.HeldBy = st.Status, heldBy
		changed++
	}
	return changed
}

// Focus resolves the chart-space centroid of a section, or of one row inside it when rowID is set.
func (l *Layout) Focus(sectionID, rowID string) (geometry.Point, bool) {
	sec, ok := l.Section(sectionID)
	if !ok {
		return geometry.Point{}, false
	}
	if rowID == "" {
		return sec.Rect().Center(), true
	}
	for ri := range sec.Rows {
		row := &sec.Rows[ri]
		if row.ID != rowID && row.Title != rowID {
			continue
		}
		var sum geometry.Point
		n := 0
		for ci := range row.Seats {
			if row.Seats[ci].IsBlank() {
				continue
			}
			sum = sum.Add(sec.SeatCenter(&row.Seats[ci]))
			n++
		}
		if n == 0 {
			return sec.Rect().Center(), true
		}
		return geometry.Point{X: sum.X / float64(n), Y: sum.Y / float64(n)}, true
	}
	return sec.Rect().Center(), true
}

// Clone returns a deep copy whose seat statuses can be mutated independently.
// Ticket categories are immutable and shared.
func (l *Layout) Clone() *Layout {
	out := &Layout{
		ID:         l.ID,
		EventID:    l.EventID,
		Name:       l.Name,
		Stage:      l.Stage,
		Sections:   make([]Section, len(l.Sections)),
		Categories: append([]TicketCategory(nil), l.Categories...),
	}
	for si, sec := range l.Sections {
		rows := make([]Row, len(sec.Rows))
		for ri, row := range sec.Rows {
			rows[ri] = Row{ID: row.ID, Title: row.Title, Seats: append([]Seat(nil), row.Seats...)}
		}
		sec.Rows = rows
		out.Sections[si] = sec
	}
	out.Reindex()
	return out
}
