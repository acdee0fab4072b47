package constants

import (
	"time"
)

// Redis Key Configuration
// This file centralizes all Redis keys and TTL values for the seatchart service
// Pattern: seatchart:{module}:{operation}:{identifier}:{params?}

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "seatchart"
)

// ================== LAYOUTS MODULE ==================

// Layout Cache Keys
const (
	CACHE_KEY_LAYOUT_DETAIL = CACHE_PREFIX + ":layouts:detail:uuid:" // + layout-id:event:event-id
)

// Layout Cache TTLs
const (
	TTL_LAYOUT_DETAIL = 4 * time.Hour
)

// ================== VIEW STATE MODULE ==================

// View Keys
const (
	CACHE_KEY_VIEW_STATE = CACHE_PREFIX + ":view:" // + owner:layout-id
)

// View TTLs
const (
	TTL_VIEW_STATE = 30 * 24 * time.Hour
)

// ================== HOLDS MODULE ==================

// Hold Keys
const (
	KEY_HOLD_META  = CACHE_PREFIX + ":holds:meta:"  // + hold-id
	KEY_HOLD_SEATS = CACHE_PREFIX + ":holds:seats:" // + hold-id
	KEY_USER_HOLDS = CACHE_PREFIX + ":holds:user:"  // + user-id
	KEY_SEAT_HOLD  = CACHE_PREFIX + ":holds:seat:"  // + event-id:seat-id
)

// Hold TTLs
const (
	TTL_SEAT_HOLD = 10 * time.Minute
)

// ================== RENDER MODULE ==================

// Sprite geometry lives in process memory, not Redis.
const (
	TTL_RENDER_GEOMETRY = 5 * time.Minute
)

// ================== RATE LIMIT MODULE ==================

const (
	KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + type:client
)

// ================== HELPER FUNCTIONS ==================

// BuildLayoutKey constructs the layout cache key
// Example: BuildLayoutKey(layoutID, eventID) -> "seatchart:layouts:detail:uuid:<layout>:event:<event>"
func BuildLayoutKey(layoutID, eventID string) string {
	return CACHE_KEY_LAYOUT_DETAIL + layoutID + ":event:" + eventID
}

// BuildLayoutPattern matches every cached copy of a layout regardless of event
func BuildLayoutPattern(layoutID string) string {
	return CACHE_KEY_LAYOUT_DETAIL + layoutID + ":*"
}

func BuildViewStateKey(owner, layoutID string) string {
	return CACHE_KEY_VIEW_STATE + owner + ":" + layoutID
}

func BuildHoldMetaKey(holdID string) string {
	return KEY_HOLD_META + holdID
}

func BuildHoldSeatsKey(holdID string) string {
	return KEY_HOLD_SEATS + holdID
}

func BuildUserHoldsKey(userID string) string {
	return KEY_USER_HOLDS + userID
}

func BuildSeatHoldKey(eventID, seatID string) string {
	return KEY_SEAT_HOLD + eventID + ":" + seatID
}

func BuildRateLimitKey(limitType, client string) string {
	return KEY_RATE_LIMIT + limitType + ":" + client
}
