package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
)

// NameResolver resolves identity display names through a Redis cache, so
// report generation does not hammer the platform for the same handful of
// moderators. Cache failures are logged and fall through to the client.
type NameResolver struct {
	client Client
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewNameResolver connects the cache using the provided configuration. An
// unreachable Redis only degrades caching; resolution still works.
func NewNameResolver(cfg config.RedisConfig, client Client, logger *zap.Logger) *NameResolver {
	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := cache.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis; display-name cache disabled", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &NameResolver{client: client, cache: cache, ttl: cfg.NameTTL, logger: logger}
}

// Resolve returns the display name for an identity, from cache when
// possible. Unresolvable identities yield a stable placeholder so reports
// never fail on a departed user.
func (r *NameResolver) Resolve(ctx context.Context, identity int64) string {
	key := nameKey(identity)
	if cached, err := r.cache.Get(ctx, key).Result(); err == nil && cached != "" {
		return cached
	}

	name, err := r.client.FetchDisplayName(ctx, identity)
	if err != nil {
		r.logger.Debug("display name unresolved",
			zap.Int64("identity", identity), zap.Error(err))
		return fmt.Sprintf("Unknown User (%d)", identity)
	}

	if err := r.cache.Set(ctx, key, name, r.ttl).Err(); err != nil {
		r.logger.Debug("display-name cache write failed", zap.Error(err))
	}
	return name
}

// Ping verifies cache connectivity for the readiness probe.
func (r *NameResolver) Ping(ctx context.Context) error {
	return r.cache.Ping(ctx).Err()
}

// Close closes the cache client.
func (r *NameResolver) Close() {
	if r != nil && r.cache != nil {
		_ = r.cache.Close()
	}
}

func nameKey(identity int64) string {
	return fmt.Sprintf("ticket-activity:name:%d", identity)
}
