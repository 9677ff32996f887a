package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const guardKeyPrefix = "billing:guard:"

// releaseScript deletes the key only while it still holds our token, so an
// expired guard re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCommandGuard shares in-flight command keys across billing instances.
type RedisCommandGuard struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ application.CommandGuard = (*RedisCommandGuard)(nil)

func NewRedisCommandGuard(rdb *redis.Client, logger *slog.Logger) *RedisCommandGuard {
	return &RedisCommandGuard{rdb: rdb, logger: logger}
}

func (g *RedisCommandGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	ok, err := g.rdb.SetNX(ctx, guardKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("acquire command guard %s: %w", key, err))
	}
	if !ok {
		return nil, application.NewCommandInFlightError(key)
	}

	release := func() {
		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.rdb, []string{guardKeyPrefix + key}, token).Err(); err != nil {
			g.logger.Warn("failed to release command guard", "key", key, "error", err)
		}
	}
	return release, nil
}
