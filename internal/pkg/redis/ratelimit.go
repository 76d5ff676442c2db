package redis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// slidingWindowScript 原子性滑动窗口计数，时间单位为毫秒
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)

if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1, now + window}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')[2]
return {0, 0, tonumber(oldest) + window}
`

// RateDecision 限流判定结果
type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// AllowSlidingWindow 在 window 内最多允许 limit 次请求
func (c *Client) AllowSlidingWindow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), rand.Uint32())

	res, err := c.Eval(ctx, slidingWindowScript, []string{c.Key("ratelimit", key)},
		now.UnixMilli(), window.Milliseconds(), limit, member)
	if err != nil {
		return RateDecision{}, err
	}
	return parseRateDecision(res)
}

func parseRateDecision(res any) (RateDecision, error) {
	values, ok := res.([]any)
	if !ok || len(values) != 3 {
		return RateDecision{}, ErrInvalidScriptResult
	}

	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	reset, ok3 := values[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return RateDecision{}, ErrInvalidScriptResult
	}

	return RateDecision{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   time.UnixMilli(reset),
	}, nil
}
