package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"linkhub-go/constant"
	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/jwt"
	"linkhub-go/internal/model"
)

// JWTAuthMiddleware 校验 Bearer 令牌，把用户名和角色写入请求上下文
func JWTAuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			_ = c.Error(apperrors.UnauthorizedError("error.unauthorized"))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			_ = c.Error(apperrors.UnauthorizedError("error.unauthorized"))
			c.Abort()
			return
		}

		c.Set(constant.ContextUsernameKey, claims.Username)
		c.Set(constant.ContextRoleKey, claims.Role)
		c.Next()
	}
}

// AdminOnlyMiddleware 仅放行管理员，必须挂在 JWTAuthMiddleware 之后
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(constant.ContextRoleKey) != model.RoleAdmin {
			_ = c.Error(apperrors.ForbiddenError("error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}
