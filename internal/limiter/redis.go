package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares lockouts across server instances. Failure counters expire after Window.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	p      Policy
}

var _ Limiter = (*Redis)(nil)

// NewRedis constructs a redis-backed limiter with keys under prefix.
func NewRedis(rdb redis.UniversalClient, prefix string, p Policy) *Redis {
	return &Redis{rdb: rdb, prefix: prefix + "limiter:", p: p.normalized()}
}

func (l *Redis) keys(username string, ipHash []byte) (fails, block string) {
	id := username + ":" + hex.EncodeToString(ipHash)
	return l.prefix + "fails:" + id, l.prefix + "block:" + id
}

func (l *Redis) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(username, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *Redis) Success(ctx context.Context, username string, ipHash []byte) error {
	fails, block := l.keys(username, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

func (l *Redis) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(username, ipHash)
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fails)
	pipe.PExpire(ctx, fails, l.p.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() < int64(l.p.MaxFails) {
		return false, 0, nil
	}
	pipe = l.rdb.TxPipeline()
	pipe.Set(ctx, block, "1", l.p.BlockFor)
	pipe.Del(ctx, fails)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	return true, l.p.BlockFor, nil
}
