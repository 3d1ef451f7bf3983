package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"linkhub-go/constant"
	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/dto"
	"linkhub-go/internal/model"
	"linkhub-go/internal/service"
	"linkhub-go/response"
)

// ShortLinkHandler /api/shortlinks 下的管理接口
type ShortLinkHandler struct {
	links   *service.ShortLinkService
	baseURL string
	logger  *zap.Logger
}

func NewShortLinkHandler(links *service.ShortLinkService, baseURL string, logger *zap.Logger) *ShortLinkHandler {
	return &ShortLinkHandler{links: links, baseURL: baseURL, logger: logger}
}

func currentUser(c *gin.Context) (username string, isAdmin bool) {
	username = c.GetString(constant.ContextUsernameKey)
	isAdmin = c.GetString(constant.ContextRoleKey) == model.RoleAdmin
	return username, isAdmin
}

// Create POST /api/shortlinks
func (h *ShortLinkHandler) Create(c *gin.Context) {
	var req dto.CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(bindError(req, err))
		return
	}

	username, _ := currentUser(c)
	link, err := h.links.Create(c.Request.Context(), req, &username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewShortLinkResponse(link, h.baseURL))
}

// Get GET /api/shortlinks/:slug
func (h *ShortLinkHandler) Get(c *gin.Context) {
	link, err := h.links.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewShortLinkResponse(link, h.baseURL))
}

// List GET /api/shortlinks，只返回当前用户自己的短链
func (h *ShortLinkHandler) List(c *gin.Context) {
	var q dto.ListShortLinksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(q, err))
		return
	}

	username, _ := currentUser(c)
	links, total, err := h.links.List(c.Request.Context(), q, &username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.toPage(q, total, links))
}

// ListAll GET /api/shortlinks/all，管理员查看全部短链
func (h *ShortLinkHandler) ListAll(c *gin.Context) {
	var q dto.ListShortLinksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(q, err))
		return
	}

	links, total, err := h.links.List(c.Request.Context(), q, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.toPage(q, total, links))
}

func (h *ShortLinkHandler) toPage(q dto.ListShortLinksQuery, total int64, links []model.ShortLink) *response.PageResponse[dto.ShortLinkResponse] {
	list := make([]dto.ShortLinkResponse, 0, len(links))
	for i := range links {
		list = append(list, dto.NewShortLinkResponse(&links[i], h.baseURL))
	}
	return response.NewPage(q.Page, q.Size, total, list)
}

// Delete DELETE /api/shortlinks/:slug
func (h *ShortLinkHandler) Delete(c *gin.Context) {
	username, isAdmin := currentUser(c)
	if err := h.links.Delete(c.Request.Context(), c.Param("slug"), username, isAdmin); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats GET /api/shortlinks/stats，当前用户名下的聚合统计
func (h *ShortLinkHandler) Stats(c *gin.Context) {
	username, _ := currentUser(c)
	stats, err := h.links.Stats(c.Request.Context(), &username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// StatsAll GET /api/shortlinks/stats/all，全站聚合统计，管理员专用
func (h *ShortLinkHandler) StatsAll(c *gin.Context) {
	stats, err := h.links.Stats(c.Request.Context(), nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// QRCode GET /api/shortlinks/:slug/qrcode，短链地址的二维码图片
func (h *ShortLinkHandler) QRCode(c *gin.Context) {
	link, err := h.links.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	shortURL := h.baseURL + "/" + link.Slug
	png, err := qrcode.Encode(shortURL, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("Failed to generate QR code", zap.String("slug", link.Slug), zap.Error(err))
		_ = c.Error(apperrors.SystemErrorDefault())
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrcode.png")
	c.Data(http.StatusOK, "image/png", png)
}
