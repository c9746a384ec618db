package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript aplica a janela deslizante de forma atômica no Redis.
// KEYS[1] = sorted set da chave (score = instante em ms)
// ARGV[1] = agora (ms)
// ARGV[2] = tamanho da janela (ms)
// ARGV[3] = limite de chamadas na janela
// ARGV[4] = membro único para esta chamada
//
// Retorna {permitido, restante, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)

if count >= limit then
  local retry = 0
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, 0, retry}
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return {1, limit - count - 1, 0}
`)

// RedisWindowStore é a janela deslizante compartilhada entre instâncias.
// Cada chave expira sozinha (TTL = janela), então não precisa de janitor.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb redis.Scripter, limit int, window time.Duration, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
		limit:  limit,
		window: window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit implementa domain.WindowStore.
func (s *RedisWindowStore) Hit(ctx context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	redisKey := s.prefix + ":" + string(key)
	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())

	res, err := slidingWindowScript.Run(ctx, s.rdb, []string{redisKey},
		now.UnixMilli(), s.window.Milliseconds(), s.limit, member).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis window error: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("redis window: unexpected script result %v", res)
	}

	return domain.Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
