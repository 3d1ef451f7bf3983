package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub-go/internal/service"
	"linkhub-go/pkg/utils"
)

// RedirectHandler 根路径短码跳转。客户端只会看到三种响应：
// 302（找到）、404（不存在/已失效/保留字）、500（意外故障）。
type RedirectHandler struct {
	links    *service.ShortLinkService
	recorder *service.VisitRecorder
	logger   *zap.Logger
}

func NewRedirectHandler(links *service.ShortLinkService, recorder *service.VisitRecorder, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{links: links, recorder: recorder, logger: logger}
}

// Redirect GET /:slug
func (h *RedirectHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")

	// 带点的路径是静态资源，保留字永远不是短码；二者都不记录访问
	if strings.Contains(slug, ".") || utils.IsReservedSlug(slug) {
		c.Status(http.StatusNotFound)
		return
	}

	// 响应写出前先取好请求元数据，后台协程不再接触请求对象
	in := service.RecordVisitInput{
		Slug:      slug,
		IPAddress: utils.ClientIP(c.Request),
		UserAgent: c.Request.UserAgent(),
		Referrer:  utils.Referrer(c.Request),
	}

	originalURL, err := h.links.Resolve(c.Request.Context(), slug)
	switch {
	case err == nil:
		in.StatusCode = http.StatusFound
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Redirect(http.StatusFound, originalURL)

		// 点击计数与访问记录都是尽力而为的旁路，不等待、不影响响应
		h.links.TryIncrementClicks(slug)
		h.recorder.Enqueue(in)

		h.logger.Debug("Redirected", zap.String("slug", slug), zap.String("target", originalURL))

	case errors.Is(err, service.ErrLinkNotFound):
		in.StatusCode = http.StatusNotFound
		c.String(http.StatusNotFound, "Short link not found")
		h.recorder.Enqueue(in)

	default:
		h.logger.Error("Failed to resolve short link", zap.String("slug", slug), zap.Error(err))
		in.StatusCode = http.StatusInternalServerError
		c.String(http.StatusInternalServerError, "Internal server error")
		h.recorder.Enqueue(in)
	}
}
