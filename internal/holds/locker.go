package holds

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"seatchart/internal/layout"
	"seatchart/internal/realtime"
	"seatchart/internal/shared/constants"
	"seatchart/pkg/logger"
)

// KEYS[1] = hold meta, KEYS[2] = hold seat set, KEYS[3] = user hold set, KEYS[4..N] = seat hold keys
// ARGV[1] = hold_id, ARGV[2] = holder, ARGV[3] = user_id, ARGV[4] = event_id, ARGV[5] = layout_id,
// ARGV[6] = ttl_seconds, ARGV[7..] = seat ids in KEYS order
var lockScript = redis.NewScript(`
local ttl = tonumber(ARGV[6])

for i = 4, #KEYS do
    if redis.call("EXISTS", KEYS[i]) == 1 then
        return {0, "seat " .. ARGV[i + 3] .. " is already held"}
    end
end

local created_at = redis.call("TIME")[1]
redis.call("HSET", KEYS[1],
    "holder", ARGV[2],
    "user_id", ARGV[3],
    "event_id", ARGV[4],
    "layout_id", ARGV[5],
    "seat_count", #KEYS - 3,
    "created_at", created_at
)
redis.call("EXPIRE", KEYS[1], ttl)

local value = ARGV[3] .. ":" .. ARGV[1]
for i = 4, #KEYS do
    redis.call("SET", KEYS[i], value, "EX", ttl)
    redis.call("SADD", KEYS[2], ARGV[i + 3])
end
redis.call("EXPIRE", KEYS[2], ttl)

redis.call("SADD", KEYS[3], ARGV[1])
redis.call("EXPIRE", KEYS[3], ttl)

return {1, created_at}
`)

// KEYS as in lockScript; ARGV[1] = hold_id, ARGV[2] = seat hold value owned by this hold
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return {0, "hold_not_found"}
end

local released = 0
for i = 4, #KEYS do
    if redis.call("GET", KEYS[i]) == ARGV[2] then
        redis.call("DEL", KEYS[i])
        released = released + 1
    end
end

redis.call("SREM", KEYS[3], ARGV[1])
redis.call("DEL", KEYS[1], KEYS[2])

return {1, released}
`)

// KEYS as in lockScript; ARGV[1] = seat hold value owned by this hold, ARGV[2] = extra seconds
var extendScript = redis.NewScript(`
local ttl = redis.call("TTL", KEYS[1])
if ttl < 0 then
    return {0, "hold_not_found"}
end

local expiry = ttl + tonumber(ARGV[2])
redis.call("EXPIRE", KEYS[1], expiry)
redis.call("EXPIRE", KEYS[2], expiry)
for i = 4, #KEYS do
    if redis.call("GET", KEYS[i]) == ARGV[1] then
        redis.call("EXPIRE", KEYS[i], expiry)
    end
end
if redis.call("TTL", KEYS[3]) < expiry then
    redis.call("EXPIRE", KEYS[3], expiry)
end

return {1, expiry}
`)

// heldBatch bounds the keys per MGET when reading seat holds.
const heldBatch = 500

// RedisLocker holds seats atomically with Lua scripts and announces the changes on a Publisher.
type RedisLocker struct {
	redis     *redis.Client
	publisher realtime.Publisher
	ttl       time.Duration
	now       func() time.Time
}

func NewRedisLocker(client *redis.Client, publisher realtime.Publisher, ttl time.Duration) *RedisLocker {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if ttl <= 0 {
		ttl = constants.TTL_SEAT_HOLD
	}
	return &RedisLocker{redis: client, publisher: publisher, ttl: ttl, now: time.Now}
}

// PreloadScripts loads the Lua scripts so later calls go through EVALSHA.
func (l *RedisLocker) PreloadScripts(ctx context.Context) error {
	if l.redis == nil {
		return ErrRedisUnavailable
	}
	if err := lockScript.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to load seat lock script: %w", err)
	}
	if err := releaseScript.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to load seat release script: %w", err)
	}
	if err := extendScript.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to load hold extend script: %w", err)
	}
	return nil
}

func (l *RedisLocker) Lock(ctx context.Context, req LockRequest) (*Hold, error) {
	if l.redis == nil {
		return nil, ErrRedisUnavailable
	}
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, &LockRejectedError{Reason: "no seats requested"}
	}
	holdID := uuid.NewString()
	holder := req.holder()

	keys := holdKeys(holdID, req.EventID, req.UserID, seatIDs)
	args := []interface{}{holdID, holder, req.UserID, req.EventID, req.LayoutID, strconv.Itoa(int(l.ttl.Seconds()))}
	for _, id := range seatIDs {
		args = append(args, id)
	}

	result, err := lockScript.Run(ctx, l.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute seat lock: %w", err)
	}
	ok, detail, err := parseScriptResult(result)
	if err != nil {
		return nil, err
	}
	if !ok {
		reason, _ := detail.(string)
		if reason == "" {
			reason = "failed to hold seats"
		}
		return nil, &LockRejectedError{Reason: reason}
	}

	createdAt := l.now()
	if secs, ok := detail.(string); ok {
		if n, err := strconv.ParseInt(secs, 10, 64); err == nil {
			createdAt = time.Unix(n, 0)
		}
	}
	hold := &Hold{
		ID:        holdID,
		EventID:   req.EventID,
		LayoutID:  req.LayoutID,
		UserID:    req.UserID,
		SeatIDs:   seatIDs,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: createdAt.Add(l.ttl).UTC(),
	}
	logger.GetDefault().LogSeatsLocked(ctx, holdID, req.EventID, req.UserID, len(seatIDs))

	l.announce(ctx, hold, layout.StatusHold, holder)
	return hold, nil
}

func (l *RedisLocker) Get(ctx context.Context, holdID string) (*Hold, error) {
	if l.redis == nil {
		return nil, ErrRedisUnavailable
	}

	pipe := l.redis.Pipeline()
	metaCmd := pipe.HGetAll(ctx, constants.BuildHoldMetaKey(holdID))
	seatsCmd := pipe.SMembers(ctx, constants.BuildHoldSeatsKey(holdID))
	ttlCmd := pipe.TTL(ctx, constants.BuildHoldMetaKey(holdID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read hold: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, ErrHoldNotFound
	}
	hold := &Hold{
		ID:       holdID,
		EventID:  meta["event_id"],
		LayoutID: meta["layout_id"],
		UserID:   meta["user_id"],
		SeatIDs:  seatsCmd.Val(),
	}
	if n, err := strconv.ParseInt(meta["created_at"], 10, 64); err == nil {
		hold.CreatedAt = time.Unix(n, 0).UTC()
	}
	if ttl := ttlCmd.Val(); ttl > 0 {
		hold.ExpiresAt = l.now().Add(ttl).UTC()
	}
	return hold, nil
}

// Release frees every seat still owned by the hold and returns how many were released.
func (l *RedisLocker) Release(ctx context.Context, holdID string) (int, error) {
	hold, err := l.Get(ctx, holdID)
	if err != nil {
		return 0, err
	}

	keys := holdKeys(holdID, hold.EventID, hold.UserID, hold.SeatIDs)
	result, err := releaseScript.Run(ctx, l.redis, keys, holdID, seatHoldValue(hold.UserID, holdID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to execute seat release: %w", err)
	}
	ok, detail, err := parseScriptResult(result)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrHoldNotFound
	}
	released, _ := detail.(int64)

	l.announce(ctx, hold, layout.StatusAvailable, "")
	return int(released), nil
}

// Extend adds by to the hold's remaining lifetime on every key the hold still owns.
func (l *RedisLocker) Extend(ctx context.Context, holdID string, by time.Duration) (*Hold, error) {
	hold, err := l.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	secs := int(by / time.Second)
	if secs <= 0 {
		return hold, nil
	}

	keys := holdKeys(holdID, hold.EventID, hold.UserID, hold.SeatIDs)
	result, err := extendScript.Run(ctx, l.redis, keys, seatHoldValue(hold.UserID, holdID), strconv.Itoa(secs)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute hold extend: %w", err)
	}
	ok, detail, err := parseScriptResult(result)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHoldNotFound
	}
	if expiry, ok := detail.(int64); ok {
		hold.ExpiresAt = l.now().Add(time.Duration(expiry) * time.Second).UTC()
	}
	logger.GetDefault().DebugContext(ctx, "Hold extended", "hold_id", holdID, "by_seconds", secs)
	return hold, nil
}

// Held reads the seat hold keys for seatIDs and resolves each live hold to its advertised holder.
func (l *RedisLocker) Held(ctx context.Context, eventID string, seatIDs []string) (map[string]string, error) {
	if l.redis == nil {
		return nil, ErrRedisUnavailable
	}

	type owner struct {
		userID string
		seats  []string
	}
	owners := make(map[string]*owner)
	for start := 0; start < len(seatIDs); start += heldBatch {
		batch := seatIDs[start:min(start+heldBatch, len(seatIDs))]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = constants.BuildSeatHoldKey(eventID, id)
		}
		values, err := l.redis.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read seat holds: %w", err)
		}
		for i, v := range values {
			s, _ := v.(string)
			userID, holdID, ok := parseSeatHold(s)
			if !ok {
				continue
			}
			o := owners[holdID]
			if o == nil {
				o = &owner{userID: userID}
				owners[holdID] = o
			}
			o.seats = append(o.seats, batch[i])
		}
	}

	held := make(map[string]string)
	if len(owners) == 0 {
		return held, nil
	}

	pipe := l.redis.Pipeline()
	holders := make(map[string]*redis.StringCmd, len(owners))
	for holdID := range owners {
		holders[holdID] = pipe.HGet(ctx, constants.BuildHoldMetaKey(holdID), "holder")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read hold holders: %w", err)
	}
	for holdID, o := range owners {
		holder := holders[holdID].Val()
		if holder == "" {
			holder = o.userID
		}
		for _, id := range o.seats {
			held[id] = holder
		}
	}
	return held, nil
}

func (l *RedisLocker) announce(ctx context.Context, hold *Hold, status layout.SeatStatus, heldBy string) {
	now := l.now().UTC()
	deltas := make([]realtime.Delta, 0, len(hold.SeatIDs))
	for _, id := range hold.SeatIDs {
		deltas = append(deltas, realtime.Delta{
			LayoutID: hold.LayoutID,
			EventID:  hold.EventID,
			SeatID:   id,
			Status:   status,
			HeldBy:   heldBy,
			At:       now,
		})
	}
	if err := l.publisher.Publish(ctx, deltas...); err != nil {
		logger.GetDefault().ErrorContext(ctx, "Failed to publish seat status", "hold_id", hold.ID, "status", status, "error", err)
	}
}

func (r LockRequest) holder() string {
	if r.HolderID != "" {
		return r.HolderID
	}
	return r.UserID
}

func seatHoldValue(userID, holdID string) string {
	return userID + ":" + holdID
}

// parseSeatHold splits a seat hold value. Hold ids are uuids, so the last colon separates them.
func parseSeatHold(value string) (userID, holdID string, ok bool) {
	i := strings.LastIndex(value, ":")
	if i < 0 || i == len(value)-1 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}

func holdKeys(holdID, eventID, userID string, seatIDs []string) []string {
	keys := make([]string, 0, len(seatIDs)+3)
	keys = append(keys,
		constants.BuildHoldMetaKey(holdID),
		constants.BuildHoldSeatsKey(holdID),
		constants.BuildUserHoldsKey(userID),
	)
	for _, id := range seatIDs {
		keys = append(keys, constants.BuildSeatHoldKey(eventID, id))
	}
	return keys
}

// parseScriptResult unpacks the {flag, detail} pair both scripts return.
func parseScriptResult(result interface{}) (bool, interface{}, error) {
	arr, ok := result.([]interface{})
	if !ok || len(arr) != 2 {
		return false, nil, fmt.Errorf("unexpected result format from Lua script")
	}
	flag, ok := arr[0].(int64)
	if !ok {
		return false, nil, fmt.Errorf("invalid success flag in Lua script result")
	}
	return flag == 1, arr[1], nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
