// Package render turns a layout, the current selection and a viewport transform into a screen
// frame, and resolves screen taps back to seats. It holds no state of its own apart from the
// optional geometry cache and performs no business validation.
package render

import (
	"math"

	"seatchart/internal/geometry"
	"seatchart/internal/layout"
	"seatchart/internal/selection"
	"seatchart/internal/viewport"
)

// MinHitRadius is the smallest screen radius used for tap tests, so tiny seats stay tappable.
const MinHitRadius = 6.0

type StageSprite struct {
	Rect  geometry.Rect     `json:"rect"`
	Shape layout.StageShape `json:"shape"`
	Name  string            `json:"name"`
}

type SectionSprite struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Rect geometry.Rect `json:"rect"`
}

type SeatSprite struct {
	ID        string         `json:"id"`
	SectionID string         `json:"section_id"`
	RowID     string         `json:"row_id"`
	Label     string         `json:"label"`
	Category  string         `json:"category,omitempty"`
	Center    geometry.Point `json:"center"`
	Radius    float64        `json:"radius"`
	Rect      geometry.Rect  `json:"rect"`
	State     VisualState    `json:"state"`
}

// Frame is everything needed to draw one view of the chart, in screen pixels.
type Frame struct {
	Stage    StageSprite     `json:"stage"`
	Sections []SectionSprite `json:"sections"`
	Seats    []SeatSprite    `json:"seats"`
	Scale    float64         `json:"scale"`
	Pan      geometry.Point  `json:"pan"`
	Viewport geometry.Size   `json:"viewport"`
}

// Input is what a frame is computed from.
type Input struct {
	Layout *layout.Layout
	// Version keys cached geometry; empty disables the cache.
	Version string
	// Visible limits the frame to these section ids; nil means every section.
	Visible   []string
	Selected  map[string]bool
	Me        string
	Transform geometry.Transform
	Viewport  geometry.Size
}

// Build computes the frame. Culled sections and blank seats are omitted.
func Build(in Input, cache *SpriteCache) Frame {
	tf := in.Transform
	f := Frame{
		Scale:    tf.Scale,
		Pan:      tf.Pan,
		Viewport: in.Viewport,
		Sections: []SectionSprite{},
		Seats:    []SeatSprite{},
	}
	l := in.Layout
	if l == nil {
		return f
	}
	f.Stage = StageSprite{Rect: tf.RectToScreen(l.Stage.Rect()), Shape: l.Stage.Shape, Name: l.Stage.Name}

	var visible map[string]bool
	if in.Visible != nil {
		visible = make(map[string]bool, len(in.Visible))
		for _, id := range in.Visible {
			visible[id] = true
		}
	}

	for si := range l.Sections {
		sec := &l.Sections[si]
		if visible != nil && !visible[sec.ID] {
			continue
		}
		f.Sections = append(f.Sections, SectionSprite{ID: sec.ID, Name: sec.Name, Rect: tf.RectToScreen(sec.Rect())})

		for _, g := range cache.section(in.Version, sec) {
			if g.row >= len(sec.Rows) || g.seat >= len(sec.Rows[g.row].Seats) {
				continue
			}
			seat := &sec.Rows[g.row].Seats[g.seat]
			if seat.ID != g.id {
				continue
			}
			center := tf.ToScreen(g.center)
			radius := g.radius * tf.Scale
			sprite := SeatSprite{
				ID:        seat.ID,
				SectionID: sec.ID,
				RowID:     g.rowID,
				Label:     g.label,
				Center:    center,
				Radius:    radius,
				Rect:      geometry.RectFromCircle(center, radius),
				State:     StateOf(seat, in.Selected[seat.ID], in.Me),
			}
			if seat.Category != nil {
				sprite.Category = seat.Category.ID
			}
			f.Seats = append(f.Seats, sprite)
		}
	}
	return f
}

// BoxesOf returns the content-space section boxes used for culling.
func BoxesOf(l *layout.Layout) []viewport.SectionBox {
	boxes := make([]viewport.SectionBox, len(l.Sections))
	for i := range l.Sections {
		boxes[i] = viewport.SectionBox{ID: l.Sections[i].ID, Rect: l.Sections[i].Rect()}
	}
	return boxes
}

// HitTest resolves a viewport-local screen point to the nearest seat whose hit circle
// contains it.
func HitTest(f Frame, p geometry.Point) (selection.Target, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i := range f.Seats {
		s := &f.Seats[i]
		d := p.Distance(s.Center)
		if d <= math.Max(s.Radius, MinHitRadius) && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return selection.Target{}, false
	}
	s := f.Seats[best]
	return selection.Target{SeatID: s.ID, SectionID: s.SectionID, RowID: s.RowID}, true
}
