package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

type redisLinkCache struct {
	pool   *redis.Pool
	logger *zap.Logger
}

// NewRedisLinkCache 基于 redigo 连接池的缓存实现
func NewRedisLinkCache(pool *redis.Pool, logger *zap.Logger) LinkCache {
	return &redisLinkCache{pool: pool, logger: logger}
}

func (c *redisLinkCache) conn(ctx context.Context) (redis.Conn, error) {
	return c.pool.GetContext(ctx)
}

func (c *redisLinkCache) closeConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
	}
}

func (c *redisLinkCache) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := c.conn(ctx)
	if err != nil {
		return "", false, err
	}
	defer c.closeConn(conn)

	value, err := redis.String(conn.Do("GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (c *redisLinkCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer c.closeConn(conn)

	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	_, err = conn.Do("SET", key, value, "EX", seconds)
	return err
}

func (c *redisLinkCache) Delete(ctx context.Context, key string) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer c.closeConn(conn)

	_, err = conn.Do("DEL", key)
	return err
}
