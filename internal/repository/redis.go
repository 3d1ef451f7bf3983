package repository

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string
	Password string
}

// NewRedisPool 创建 redigo 连接池
func NewRedisPool(cfg RedisConfig, logger *zap.Logger) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			conn, err := redis.Dial("tcp", cfg.Addr)
			if err != nil {
				logger.Error("Failed to connect Redis",
					zap.String("addr", cfg.Addr),
					zap.Error(err),
				)
				return nil, err
			}

			// 如果设置了密码，执行 AUTH
			if cfg.Password != "" {
				if _, authErr := conn.Do("AUTH", cfg.Password); authErr != nil {
					if closeErr := conn.Close(); closeErr != nil {
						logger.Error("Failed to close redis connection after AUTH failure",
							zap.String("addr", cfg.Addr),
							zap.Error(closeErr),
						)
					}
					logger.Error("Redis AUTH failed",
						zap.String("addr", cfg.Addr),
						zap.Error(authErr),
					)
					return nil, authErr
				}
			}

			logger.Debug("Redis connection established",
				zap.String("addr", cfg.Addr),
				zap.Bool("auth", cfg.Password != ""),
			)

			return conn, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) > time.Minute {
				_, err := c.Do("PING")
				if err != nil {
					logger.Warn("Redis connection health check failed",
						zap.String("addr", cfg.Addr),
						zap.Error(err),
					)
				}
				return err
			}
			return nil
		},
	}
}
