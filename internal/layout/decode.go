package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Fallbacks used when the layout payload carries missing or malformed geometry.
const (
	DefaultSeatRadius  = 10.0
	DefaultRowSpacing  = 30.0
	DefaultSeatSpacing = 25.0
)

// flexNumber accepts JSON numbers, numeric strings, booleans or null.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			n.value, n.set = v, true
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		n.value, n.set = v, true
	}
	return nil
}

func (n flexNumber) or(fallback float64) float64 {
	if !n.set {
		return fallback
	}
	return n.value
}

func (n flexNumber) positiveOr(fallback float64) float64 {
	if !n.set || n.value <= 0 {
		return fallback
	}
	return n.value
}

// flexString accepts strings or numbers, so numeric ids survive.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(string(b))
	return nil
}

type wireCategory struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	Price flexNumber `json:"price"`
	Limit flexNumber `json:"limit"`
}

type wireSeat struct {
	ID       flexString    `json:"id"`
	Number   flexString    `json:"number"`
	X        flexNumber    `json:"x"`
	Y        flexNumber    `json:"y"`
	Radius   flexNumber    `json:"radius"`
	Status   string        `json:"status"`
	HeldBy   flexString    `json:"held_by"`
	TicketID flexString    `json:"ticket_id"`
	Ticket   *wireCategory `json:"ticket"`
}

type wireRow struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
	Seats []wireSeat `json:"seats"`
}

type wireSection struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	X          flexNumber `json:"x"`
	Y          flexNumber `json:"y"`
	Width      flexNumber `json:"width"`
	Height     flexNumber `json:"height"`
	RowSpacing flexNumber `json:"row_spacing"`
	Rows       []wireRow  `json:"rows"`
}

type wireStage struct {
	X      flexNumber `json:"x"`
	Y      flexNumber `json:"y"`
	Width  flexNumber `json:"width"`
	Height flexNumber `json:"height"`
	Shape  string     `json:"shape"`
	Name   string     `json:"name"`
}

type wireLayout struct {
	ID         flexString     `json:"id"`
	EventID    flexString     `json:"event_id"`
	Name       string         `json:"name"`
	Stage      *wireStage     `json:"stage"`
	Categories []wireCategory `json:"ticket_categories"`
	Sections   []wireSection  `json:"sections"`
}

// Decode parses a layout payload. Numeric fields may arrive as strings; malformed values fall
// back to the documented defaults instead of failing the whole layout.
func Decode(r io.Reader) (*Layout, error) {
	var w wireLayout
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	return w.toLayout(), nil
}

func (c wireCategory) toCategory() TicketCategory {
	limit := int(c.Limit.or(0))
	if limit < 0 {
		limit = 0
	}
	return TicketCategory{
		ID:    string(c.ID),
		Name:  c.Name,
		Price: c.Price.or(0),
		Limit: limit,
	}
}

func (w wireLayout) toLayout() *Layout {
	l := &Layout{
		ID:      string(w.ID),
		EventID: string(w.EventID),
		Name:    w.Name,
	}
	if w.Stage != nil {
		l.Stage = Stage{
			X:      w.Stage.X.or(0),
			Y:      w.Stage.Y.or(0),
			Width:  w.Stage.Width.positiveOr(0),
			Height: w.Stage.Height.positiveOr(0),
			Shape:  parseStageShape(w.Stage.Shape),
			Name:   w.Stage.Name,
		}
	}

	categories := make(map[string]*TicketCategory, len(w.Categories))
	for _, c := range w.Categories {
		l.Categories = append(l.Categories, c.toCategory())
	}
	for i := range l.Categories {
		categories[l.Categories[i].ID] = &l.Categories[i]
	}

	for _, ws := range w.Sections {
		l.Sections = append(l.Sections, ws.toSection(l, categories))
	}
	l.Reindex()
	return l
}

func (ws wireSection) toSection(l *Layout, categories map[string]*TicketCategory) Section {
	sec := Section{
		ID:   string(ws.ID),
		Name: ws.Name,
		X:    ws.X.or(0),
		Y:    ws.Y.or(0),
	}
	rowSpacing := ws.RowSpacing.positiveOr(DefaultRowSpacing)

	var maxX, maxY float64
	for ri, wr := range ws.Rows {
		row := Row{ID: string(wr.ID), Title: wr.Title}
		if row.ID == "" {
			row.ID = fmt.Sprintf("%s-%d", sec.ID, ri)
		}
		for ci, wseat := range wr.Seats {
			seat := Seat{
				ID:     string(wseat.ID),
				Number: string(wseat.Number),
				Radius: wseat.Radius.positiveOr(DefaultSeatRadius),
				Status: ParseSeatStatus(wseat.Status),
				HeldBy: string(wseat.HeldBy),
			}
			seat.X = wseat.X.or(float64(ci)*DefaultSeatSpacing + seat.Radius)
			seat.Y = wseat.Y.or(float64(ri)*rowSpacing + seat.Radius)
			seat.Category = resolveCategory(l, categories, wseat)
			maxX = max(maxX, seat.X+seat.Radius)
			maxY = max(maxY, seat.Y+seat.Radius)
			row.Seats = append(row.Seats, seat)
		}
		sec.Rows = append(sec.Rows, row)
	}

	sec.Width = ws.Width.positiveOr(maxX)
	sec.Height = ws.Height.positiveOr(maxY)
	return sec
}

// resolveCategory prefers an inline ticket object and falls back to ticket_id lookup.
// Inline categories not declared at the top level are registered so they are shared.
func resolveCategory(l *Layout, categories map[string]*TicketCategory, ws wireSeat) *TicketCategory {
	if ws.Ticket != nil && ws.Ticket.ID != "" {
		if c, ok := categories[string(ws.Ticket.ID)]; ok {
			return c
		}
		c := ws.Ticket.toCategory()
		ptr := &c
		categories[c.ID] = ptr
		return ptr
	}
	if ws.TicketID != "" {
		if c, ok := categories[string(ws.TicketID)]; ok {
			return c
		}
	}
	return nil
}
