// Package cache 提供重定向路径使用的目标 URL 缓存。
// 缓存不是数据源，读路径只把它当作时效副本（cache-aside）。
package cache

import (
	"context"
	"time"
)

// LinkCache 目标 URL 缓存接口
type LinkCache interface {
	// Get 返回缓存值；第二个返回值表示是否命中
	Get(ctx context.Context, key string) (string, bool, error)
	// Set 写入缓存并设置过期时间
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete 主动失效
	Delete(ctx context.Context, key string) error
}
