package chart

import (
	"time"

	"seatchart/internal/pricing"
	"seatchart/internal/selection"
	"seatchart/internal/viewport"
)

const (
	DefaultTapZoomThreshold = 0.8
	DefaultTapZoomTarget    = 1.4
	DefaultDeepLinkZoom     = 1.5
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultTickInterval     = time.Second
	DefaultIdleTTL          = 30 * time.Minute
)

// Options configures every session a Manager opens.
type Options struct {
	MaxSeats    int
	HoldSeconds int
	Fee         pricing.Fee

	// Pointer and Touch are the viewport options for desktop and touch clients.
	Pointer viewport.Options
	Touch   viewport.Options

	// A tap that selects a seat while the scale is below TapZoomThreshold zooms to TapZoomTarget.
	TapZoomThreshold float64
	TapZoomTarget    float64
	DeepLinkZoom     float64

	PersistDebounce time.Duration
	FrameInterval   time.Duration
	// TickInterval is one hold-countdown second.
	TickInterval time.Duration
	IdleTTL      time.Duration

	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MaxSeats:         selection.DefaultMaxSeats,
		HoldSeconds:      selection.DefaultHoldSeconds,
		Pointer:          viewport.DefaultOptions(),
		Touch:            viewport.TouchOptions(),
		TapZoomThreshold: DefaultTapZoomThreshold,
		TapZoomTarget:    DefaultTapZoomTarget,
		DeepLinkZoom:     DefaultDeepLinkZoom,
		PersistDebounce:  viewport.DefaultDebounce,
		FrameInterval:    DefaultFrameInterval,
		TickInterval:     DefaultTickInterval,
		IdleTTL:          DefaultIdleTTL,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TapZoomThreshold <= 0 {
		o.TapZoomThreshold = def.TapZoomThreshold
	}
	if o.TapZoomTarget <= 0 {
		o.TapZoomTarget = def.TapZoomTarget
	}
	if o.DeepLinkZoom <= 0 {
		o.DeepLinkZoom = def.DeepLinkZoom
	}
	if o.PersistDebounce <= 0 {
		o.PersistDebounce = def.PersistDebounce
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = def.FrameInterval
	}
	if o.TickInterval <= 0 {
		o.TickInterval = def.TickInterval
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = def.IdleTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
