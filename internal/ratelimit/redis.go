package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript atomically counts one request in a fixed window.
// KEYS[1] = counter key
// ARGV[1] = limit
// ARGV[2] = window in milliseconds
// Returns {allowed (0|1), count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
		local key    = KEYS[1]
		local limit  = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = tonumber(redis.call('GET', key) or '0')
		if current >= limit then
			local ttl = redis.call('PTTL', key)
			if ttl < 0 then ttl = window end
			return {0, current, ttl}
		end

		local count = redis.call('INCR', key)
		if count == 1 then
			redis.call('PEXPIRE', key, window)
		end

		local ttl = redis.call('PTTL', key)
		if ttl < 0 then
			redis.call('PEXPIRE', key, window)
			ttl = window
		end
		return {1, count, ttl}
`)

const redisKeyPrefix = "ratelimit:chat:"

// RedisWindow is a fixed-window counter stored in Redis. Counters expire on
// their own, so no sweeping is needed.
type RedisWindow struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisWindow creates a Redis-backed store on an already connected client.
func NewRedisWindow(rdb *redis.Client, cfg Config) *RedisWindow {
	return &RedisWindow{rdb: rdb, limit: cfg.limit(), window: cfg.window(), now: time.Now}
}

func (r *RedisWindow) Limit() int            { return r.limit }
func (r *RedisWindow) Window() time.Duration { return r.window }

// Check counts one request for clientID. A Redis failure allows the request
// (graceful degradation) and reports the error.
func (r *RedisWindow) Check(ctx context.Context, clientID string) (Decision, error) {
	now := r.now()

	res, err := fixedWindowScript.Run(ctx, r.rdb,
		[]string{redisKeyPrefix + clientID},
		r.limit, r.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{Allowed: true, Limit: r.limit, Remaining: r.limit, ResetAt: now.Add(r.window)},
			fmt.Errorf("ratelimit: redis: %w", err)
	}
	if len(res) != 3 {
		return Decision{Allowed: true, Limit: r.limit, Remaining: r.limit, ResetAt: now.Add(r.window)},
			fmt.Errorf("ratelimit: redis: unexpected script result %v", res)
	}

	allowed := res[0] == 1
	remaining := r.limit - int(res[1])
	if !allowed || remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(res[2]) * time.Millisecond),
	}, nil
}
