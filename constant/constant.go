package constant

import (
	"fmt"
	"strings"
)

// 常量定义
const (
	BasePrefix = "linkhub:"
)

// Redis 键模板
const (
	ShortLinkKey = BasePrefix + "slug:%s" // linkhub:slug:<lowercased slug>
)

// gin 上下文键
const (
	ContextUsernameKey = "auth.Username"
	ContextRoleKey     = "auth.Role"
)

// GetShortLinkKey 生成短链缓存 key，slug 统一转小写
func GetShortLinkKey(slug string) string {
	return fmt.Sprintf(ShortLinkKey, strings.ToLower(slug))
}
