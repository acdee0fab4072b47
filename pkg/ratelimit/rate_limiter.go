package ratelimit

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"seatchart/internal/shared/constants"
)

type RateLimitType string

const (
	RateLimitTypeDefault RateLimitType = "default"
	RateLimitTypePublic  RateLimitType = "public"
	RateLimitTypeGesture RateLimitType = "gesture"
	RateLimitTypeHold    RateLimitType = "hold"
	RateLimitTypeAdmin   RateLimitType = "admin"
	RateLimitTypeHealth  RateLimitType = "health"
)

// Config holds the per-window request budget of each route class
type Config struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	GestureRequests int           `json:"gesture_requests"`
	HoldRequests    int           `json:"hold_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// KEYS[1] = window key; ARGV[1] = now (ms), ARGV[2] = window (ms), ARGV[3] = limit,
// ARGV[4] = unique member for this request. Returns {allowed, remaining}.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
redis.call("PEXPIRE", KEYS[1], window)

if count >= limit then
    return {0, 0}
end

redis.call("ZADD", KEYS[1], now, ARGV[4])
return {1, limit - count - 1}
`)

// RateLimiter keeps a sliding window of request timestamps per client and route class in Redis.
type RateLimiter struct {
	client *redis.Client
	config *Config
	seq    atomic.Uint64
}

// NewRateLimiter returns a limiter that lets everything through when client is nil.
func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// IsAllowed records one request from clientIP against the budget of limitType.
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	if !r.config.Enabled || r.client == nil || r.isWhitelisted(clientIP) {
		return r.unlimited(limit), nil
	}
	return r.checkLimit(ctx, constants.BuildRateLimitKey(string(limitType), clientIP), limit)
}

func (r *RateLimiter) unlimited(limit int) *Result {
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetTime: time.Now().Add(r.config.WindowDuration).Unix(),
	}
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(r.seq.Add(1), 36)

	values, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		now.UnixMilli(),
		r.config.WindowDuration.Milliseconds(),
		limit,
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit reply %v", values)
	}

	return &Result{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeGesture:
		return r.config.GestureRequests
	case RateLimitTypeHold:
		return r.config.HoldRequests
	case RateLimitTypeAdmin:
		return r.config.AdminRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	return slices.Contains(r.config.WhitelistedIPs, ip)
}
