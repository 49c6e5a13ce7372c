package caching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sciportfolio/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "sci"

type CacheService interface {
	// Share link registry
	SetShareLink(ctx context.Context, token string, inspectionID uuid.UUID, ttl time.Duration) error
	GetShareLink(ctx context.Context, token string) (uuid.UUID, error)
	DeleteShareLink(ctx context.Context, token string) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

type redisCacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Accept redis://host:port as well as host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(pingErr))
	} else {
		logger.Debug("redis connection established", zap.String("addr", parsedAddr))
	}

	return NewCacheServiceWithClient(client, logger)
}

func NewCacheServiceWithClient(client redis.UniversalClient, logger *zap.Logger) CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisCacheService{client: client, logger: logger}
}

func shareLinkKey(token string) string {
	return fmt.Sprintf("%s:share:%s", keyPrefix, token)
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
}

func (r *redisCacheService) SetShareLink(ctx context.Context, token string, inspectionID uuid.UUID, ttl time.Duration) error {
	return r.client.Set(ctx, shareLinkKey(token), inspectionID.String(), ttl).Err()
}

func (r *redisCacheService) GetShareLink(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.client.Get(ctx, shareLinkKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, common.ErrNotFound
		}
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		r.logger.Warn("dropping malformed share link entry", zap.String("value", val))
		_ = r.client.Del(ctx, shareLinkKey(token)).Err()
		return uuid.Nil, common.ErrNotFound
	}
	return id, nil
}

func (r *redisCacheService) DeleteShareLink(ctx context.Context, token string) error {
	return r.client.Del(ctx, shareLinkKey(token)).Err()
}

// IsRateLimited counts a hit against key and reports whether it exceeded limit
// within the current window. The window starts at the first hit; a counter
// left without a TTL gets one on its next hit.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := rateLimitKey(key)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, cacheKey)
		pipe.ExpireNX(ctx, cacheKey, window)
		return nil
	})
	if err != nil {
		r.logger.Warn("rate limit update failed", zap.String("key", cacheKey), zap.Error(err))
		return false, err
	}
	return incr.Val() > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Close() error {
	return r.client.Close()
}
