package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisKeyPrefix namespaces limiter state so a shared redis can serve other
// services without key collisions.
const (
	redisKeyPrefix   = "stagelink:rl:"
	redisCallTimeout = 250 * time.Millisecond
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter shares rate-limit state across instances. It fails open: a
// slow or unreachable redis never blocks a request.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	log    *zap.SugaredLogger
}

func NewRedisLimiter(client *redis.Client, log *zap.SugaredLogger) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		log:    log,
	}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{redisKeyPrefix + key}, ttl, limit).Int64()
	if err != nil {
		if l.log != nil {
			l.log.Warnw("rate limiter unavailable, failing open", "error", err)
		}
		return true
	}
	return allowed == 1
}
