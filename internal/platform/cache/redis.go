package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type redisCmd interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Close() error
}

type redisCache struct {
	log *logger.Logger
	rdb redisCmd
	ttl time.Duration
}

// NewRedisCache connects to REDIS_ADDR and verifies the connection with a
// ping. Entry lifetime comes from CACHE_TTL_SECONDS (default one day).
func NewRedisCache(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := envutil.Seconds("CACHE_TTL_SECONDS", 24*time.Hour)

	log.Info("Redis cache connected", "addr", addr, "ttl", ttl.String())
	return &redisCache{
		log: log.With("service", "RedisCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("Cache get failed", "key", key, "error", err.Error())
		}
		return nil, false
	}
	return raw, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn("Cache set failed", "key", key, "error", err.Error())
	}
}

func (c *redisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
