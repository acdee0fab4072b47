package holds

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHoldNotFound     = errors.New("hold not found")
	ErrRedisUnavailable = errors.New("redis client not available")
)

// LockRejectedError carries the lock server's rejection message unchanged.
type LockRejectedError struct {
	Reason string
}

func (e *LockRejectedError) Error() string {
	return "seat lock rejected: " + e.Reason
}

type LockRequest struct {
	EventID  string   `json:"event_id" validate:"required"`
	LayoutID string   `json:"layout_id,omitempty"`
	UserID   string   `json:"user_id" validate:"required"`
	HolderID string   `json:"holder_id,omitempty"` // advertised as held_by; defaults to UserID
	SeatIDs  []string `json:"seat_ids" validate:"required,min=1,dive,required"`
}

type Hold struct {
	ID        string    `json:"hold_id"`
	EventID   string    `json:"event_id"`
	LayoutID  string    `json:"layout_id,omitempty"`
	UserID    string    `json:"user_id"`
	SeatIDs   []string  `json:"seat_ids"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Remaining is the time left on the hold at now.
func (h *Hold) Remaining(now time.Time) time.Duration {
	if d := h.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Locker takes, inspects, extends and releases multi-seat holds.
type Locker interface {
	Lock(ctx context.Context, req LockRequest) (*Hold, error)
	Get(ctx context.Context, holdID string) (*Hold, error)
	Release(ctx context.Context, holdID string) (int, error)
	// Extend pushes the hold's expiry out by the given duration.
	Extend(ctx context.Context, holdID string, by time.Duration) (*Hold, error)
	// Held reports which of the seats are currently held for the event, as seat id -> holder.
	Held(ctx context.Context, eventID string, seatIDs []string) (map[string]string, error)
}
