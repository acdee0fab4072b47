// Package realtime carries seat-status deltas between the chart service and the rest of the
// platform: broker consumers that feed remote changes into open chart sessions, publishers that
// announce local holds and bookings, and an in-process broadcaster for server-sent events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seatchart/internal/layout"
	"seatchart/internal/selection"
)

var ErrInvalidDelta = errors.New("invalid seat status delta")

// Delta is the wire form of one seat-status change.
type Delta struct {
	LayoutID  string            `json:"layout_id"`
	EventID   string            `json:"event_id,omitempty"`
	SeatID    string            `json:"seat_id" validate:"required"`
	SectionID string            `json:"section_id,omitempty"`
	RowID     string            `json:"row_id,omitempty"`
	Status    layout.SeatStatus `json:"status" validate:"required"`
	HeldBy    string            `json:"held_by,omitempty"`
	At        time.Time         `json:"at,omitempty"`
}

// Selection returns the part of the delta the selection machine merges.
func (d Delta) Selection() selection.Delta {
	return selection.Delta{
		SeatID:    d.SeatID,
		SectionID: d.SectionID,
		RowID:     d.RowID,
		Status:    d.Status,
		HeldBy:    d.HeldBy,
	}
}

// Key is the partition key; deltas for one seat stay ordered.
func (d Delta) Key() string {
	return d.EventID + ":" + d.SeatID
}

// DecodeDelta parses and normalises a delta message.
func DecodeDelta(body []byte) (Delta, error) {
	var d Delta
	if err := json.Unmarshal(body, &d); err != nil {
		return Delta{}, fmt.Errorf("%w: %v", ErrInvalidDelta, err)
	}
	if d.SeatID == "" {
		return Delta{}, fmt.Errorf("%w: missing seat_id", ErrInvalidDelta)
	}
	if d.LayoutID == "" && d.EventID == "" {
		return Delta{}, fmt.Errorf("%w: missing layout_id and event_id", ErrInvalidDelta)
	}
	d.Status = layout.ParseSeatStatus(string(d.Status))
	return d, nil
}

// Sink receives deltas. It returns how many open sessions the delta reached.
type Sink interface {
	ApplyDelta(ctx context.Context, d Delta) int
}

// Publisher announces deltas to other service instances.
type Publisher interface {
	Publish(ctx context.Context, deltas ...Delta) error
	Close() error
}

// NopPublisher drops every delta. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Delta) error { return nil }
func (NopPublisher) Close() error                            { return nil }
