package geometry

// Transform maps chart space to screen space: screen = content*Scale + Pan.
type Transform struct {
	Scale float64 `json:"scale"`
	Pan   Point   `json:"pan"`
}

// Identity is the unscaled, unpanned transform.
var Identity = Transform{Scale: 1}

// ToScreen converts a content-space point to screen pixels.
func (t Transform) ToScreen(p Point) Point {
	return Point{X: p.X*t.Scale + t.Pan.X, Y: p.Y*t.Scale + t.Pan.Y}
}

// ToContent converts a screen point back into content space.
func (t Transform) ToContent(p Point) Point {
	if t.Scale == 0 {
		return Point{}
	}
	return Point{X: (p.X - t.Pan.X) / t.Scale, Y: (p.Y - t.Pan.Y) / t.Scale}
}

// RectToScreen converts a content-space rect to screen pixels.
func (t Transform) RectToScreen(r Rect) Rect {
	origin := t.ToScreen(Point{X: r.X, Y: r.Y})
	return Rect{X: origin.X, Y: origin.Y, Width: r.Width * t.Scale, Height: r.Height * t.Scale}
}

// VisibleWindow returns the part of content space that is visible in a viewport of the given size.
func (t Transform) VisibleWindow(viewport Size) Rect {
	if t.Scale == 0 {
		return Rect{}
	}
	origin := t.ToContent(Point{})
	return Rect{X: origin.X, Y: origin.Y, Width: viewport.Width / t.Scale, Height: viewport.Height / t.Scale}
}
