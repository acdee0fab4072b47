package selection

// TimerState is the hold countdown phase.
type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerActive  TimerState = "active"
	TimerExpired TimerState = "expired"
)

// DefaultHoldSeconds is the countdown started by the first selected seat.
const DefaultHoldSeconds = 600

// HoldTimer holds the countdown state only. It does not own a clock; the caller
// drives it with one Tick per elapsed second and reacts to expiry.
type HoldTimer struct {
	State     TimerState `json:"state"`
	Remaining int        `json:"remaining_seconds"`
	Default   int        `json:"-"`
}

// NewHoldTimer returns an idle timer with the given default countdown.
func NewHoldTimer(seconds int) HoldTimer {
	if seconds <= 0 {
		seconds = DefaultHoldSeconds
	}
	return HoldTimer{State: TimerIdle, Remaining: seconds, Default: seconds}
}

// Start moves Idle to Active with a fresh countdown. Starting an active timer is a no-op.
func (t *HoldTimer) Start() {
	if t.State == TimerActive {
		return
	}
	t.State = TimerActive
	t.Remaining = t.Default
}

// Tick consumes one second. It returns true exactly once, when an active countdown reaches zero.
func (t *HoldTimer) Tick() bool {
	if t.State != TimerActive {
		return false
	}
	t.Remaining--
	if t.Remaining > 0 {
		return false
	}
	t.Remaining = 0
	t.State = TimerExpired
	return true
}

// Extend adds seconds to an active countdown.
func (t *HoldTimer) Extend(seconds int) bool {
	if t.State != TimerActive || seconds <= 0 {
		return false
	}
	t.Remaining += seconds
	return true
}

// Reset returns to Idle with the configured default countdown.
func (t *HoldTimer) Reset() {
	t.State = TimerIdle
	t.Remaining = t.Default
}

// Active reports whether the countdown is running.
func (t *HoldTimer) Active() bool {
	return t.State == TimerActive
}
