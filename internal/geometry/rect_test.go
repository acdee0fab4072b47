package geometry

import (
	"math"
	"testing"
)

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: -5, Width: 5, Height: 5}
	got := a.Union(b)
	want := Rect{X: 0, Y: -5, Width: 25, Height: 15}
	if got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}

	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty.Union(a) = %+v, want %+v", got, a)
	}
}

func TestRect_Intersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, true},
		{"touching edge", Rect{0, 0, 10, 10}, Rect{10, 0, 5, 5}, true},
		{"apart", Rect{0, 0, 10, 10}, Rect{11, 11, 5, 5}, false},
		{"empty", Rect{0, 0, 0, 10}, Rect{0, 0, 10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRect_Intersect(t *testing.T) {
	got := Rect{0, 0, 10, 10}.Intersect(Rect{5, 5, 10, 10})
	want := Rect{5, 5, 5, 5}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}
	if got := (Rect{0, 0, 1, 1}).Intersect(Rect{5, 5, 1, 1}); !got.IsEmpty() {
		t.Errorf("disjoint Intersect = %+v, want empty", got)
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{X: 25, Y: 30}, true},
		{"corner", Point{X: 40, Y: 60}, true},
		{"left of", Point{X: 9.99, Y: 30}, false},
		{"below", Point{X: 25, Y: 60.01}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
	if (Rect{X: 0, Y: 0, Width: 0, Height: 5}).Contains(Point{}) {
		t.Error("a rect without area contained a point")
	}
}

func TestRect_IntersectTouchingEdge(t *testing.T) {
	got := Rect{0, 0, 10, 10}.Intersect(Rect{10, 0, 5, 5})
	if !got.IsEmpty() {
		t.Errorf("touching Intersect = %+v, want empty", got)
	}
}

func TestContentBounds(t *testing.T) {
	stage := Rect{X: 100, Y: 0, Width: 200, Height: 40}
	sections := []Rect{
		{X: 0, Y: 80, Width: 150, Height: 100},
		{X: 250, Y: 80, Width: 150, Height: 100},
		{},
	}
	got := ContentBounds(stage, sections...)
	want := Rect{X: 0, Y: 0, Width: 400, Height: 180}
	if got != want {
		t.Errorf("ContentBounds = %+v, want %+v", got, want)
	}

	noStage := ContentBounds(Rect{}, sections[0])
	if noStage != sections[0] {
		t.Errorf("ContentBounds without stage = %+v, want %+v", noStage, sections[0])
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	tr := Transform{Scale: 1.75, Pan: Point{X: -40, Y: 12.5}}
	p := Point{X: 123.4, Y: -56.7}
	back := tr.ToContent(tr.ToScreen(p))
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}
}

func TestTransform_VisibleWindow(t *testing.T) {
	tr := Transform{Scale: 2, Pan: Point{X: -100, Y: -50}}
	got := tr.VisibleWindow(Size{Width: 400, Height: 300})
	want := Rect{X: 50, Y: 25, Width: 200, Height: 150}
	if got != want {
		t.Errorf("VisibleWindow = %+v, want %+v", got, want)
	}
}
