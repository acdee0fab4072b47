package viewport

import (
	"sort"
	"time"
)

const (
	minZoom   = 0.2
	maxZoom   = 3.0
	zoomStep  = 1.25
	wheelStep = 1.1

	touchMinZoom = 0.15
	touchMaxZoom = 2.0
)

// DensityCap limits the fit-to-bounds scale for charts with at least MinSeats seats.
type DensityCap struct {
	MinSeats int     `json:"min_seats"`
	MaxScale float64 `json:"max_scale"`
}

type Options struct {
	MinScale float64
	MaxScale float64
	// Padding is kept free around the content by fit-to-bounds, in screen pixels.
	Padding float64
	// DragThreshold is the displacement, in screen pixels, before a press becomes a pan.
	DragThreshold float64
	WheelStep     float64
	ButtonStep    float64

	DoubleTapWindow time.Duration
	DoubleTapSlop   float64

	DensityCaps []DensityCap
	// CullPadding grows each section box, in content units, before the visibility test.
	CullPadding float64
}

// DefaultOptions suits pointer-driven desktop charts.
func DefaultOptions() Options {
	return Options{
		MinScale:        minZoom,
		MaxScale:        maxZoom,
		Padding:         40,
		DragThreshold:   8,
		WheelStep:       wheelStep,
		ButtonStep:      zoomStep,
		DoubleTapWindow: 300 * time.Millisecond,
		DoubleTapSlop:   30,
		DensityCaps: []DensityCap{
			{MinSeats: 500, MaxScale: 1.0},
			{MinSeats: 200, MaxScale: 1.5},
			{MinSeats: 0, MaxScale: 2.0},
		},
		CullPadding: 100,
	}
}

// TouchOptions suits small touch screens.
func TouchOptions() Options {
	opts := DefaultOptions()
	opts.MinScale = touchMinZoom
	opts.MaxScale = touchMaxZoom
	opts.Padding = 20
	opts.DragThreshold = 10
	opts.DensityCaps = []DensityCap{
		{MinSeats: 500, MaxScale: 0.8},
		{MinSeats: 200, MaxScale: 1.2},
		{MinSeats: 0, MaxScale: 1.6},
	}
	return opts
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinScale <= 0 {
		o.MinScale = def.MinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = def.MaxScale
	}
	if o.MaxScale < o.MinScale {
		o.MinScale, o.MaxScale = o.MaxScale, o.MinScale
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.DragThreshold <= 0 {
		o.DragThreshold = def.DragThreshold
	}
	if o.WheelStep <= 1 {
		o.WheelStep = def.WheelStep
	}
	if o.ButtonStep <= 1 {
		o.ButtonStep = def.ButtonStep
	}
	if o.DoubleTapWindow <= 0 {
		o.DoubleTapWindow = def.DoubleTapWindow
	}
	if o.DoubleTapSlop <= 0 {
		o.DoubleTapSlop = def.DoubleTapSlop
	}
	if len(o.DensityCaps) == 0 {
		o.DensityCaps = def.DensityCaps
	}
	caps := append([]DensityCap(nil), o.DensityCaps...)
	sort.Slice(caps, func(i, j int) bool { return caps[i].MinSeats > caps[j].MinSeats })
	o.DensityCaps = caps
	if o.CullPadding < 0 {
		o.CullPadding = 0
	}
	return o
}

// densityCap returns the highest scale fit-to-bounds may pick for seatCount seats.
func (o Options) densityCap(seatCount int) float64 {
	for _, c := range o.DensityCaps {
		if seatCount >= c.MinSeats {
			return c.MaxScale
		}
	}
	return o.MaxScale
}
