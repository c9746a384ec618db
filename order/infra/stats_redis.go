package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-gateway/order/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava desfechos em hashes do Redis:
//
//	<prefix>:total                  outcome -> n (não expira)
//	<prefix>:variant:<v>            outcome -> n (não expira)
//	<prefix>:hour:<YYYYMMDDHH>      <v>:<outcome> -> n (expira em ttl)
//	<prefix>:client:<ip>            outcome -> n (expira em ttl, só com trackClients)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl vale para as chaves de série temporal e por cliente.
	ttl time.Duration

	bucket string // "hour" (padrão) ou "none"

	trackClients bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackClients(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackClients = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "orders:stats",
		ttl:    7 * 24 * time.Hour,
		bucket: "hour",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	outcome := string(ev.Outcome)
	variant := strings.TrimSpace(ev.Variant)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", outcome, 1)

	if variant != "" {
		pipe.HIncrBy(ctx, s.prefix+":variant:"+variant, outcome, 1)
	}

	if s.bucket == "hour" {
		bucketKey := fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
		pipe.HIncrBy(ctx, bucketKey, variant+":"+outcome, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackClients {
		if ip := strings.TrimSpace(ev.ClientIP); ip != "" {
			clientKey := s.prefix + ":client:" + ip
			pipe.HIncrBy(ctx, clientKey, outcome, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, clientKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
