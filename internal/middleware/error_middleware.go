package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/i18n"
	"linkhub-go/response"
)

// GlobalErrorMiddleware 全局错误中间件，把 AppError 按请求语言翻译后写出
func GlobalErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// 如果有错误发生
		if len(c.Errors) > 0 {
			for _, err := range c.Errors {
				var appErr *apperrors.AppError
				if errors.As(err.Err, &appErr) {
					message := i18n.Localize(c.Request.Context(), appErr.Message)
					c.AbortWithStatusJSON(appErr.Code, response.Error(message))
					return
				}
			}

			// 默认处理未定义的错误
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				response.Error(i18n.Localize(c.Request.Context(), "error.system")))
			return
		}
	}
}
