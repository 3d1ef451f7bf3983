package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub-go/internal/dto"
	"linkhub-go/internal/model"
	"linkhub-go/internal/service"
	"linkhub-go/response"
)

// VisitHandler /api/visits 下的访问日志与分析接口
type VisitHandler struct {
	visits  *service.VisitService
	baseURL string
	logger  *zap.Logger
}

func NewVisitHandler(visits *service.VisitService, baseURL string, logger *zap.Logger) *VisitHandler {
	return &VisitHandler{visits: visits, baseURL: baseURL, logger: logger}
}

func (h *VisitHandler) bindPage(c *gin.Context) (dto.ListVisitsQuery, bool) {
	var q dto.ListVisitsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(q, err))
		return q, false
	}
	return q, true
}

func (h *VisitHandler) toPage(q dto.ListVisitsQuery, total int64, visits []model.Visit) *response.PageResponse[dto.VisitResponse] {
	list := make([]dto.VisitResponse, 0, len(visits))
	for i := range visits {
		list = append(list, dto.NewVisitResponse(&visits[i], h.baseURL))
	}
	return response.NewPage(q.Page, q.Size, total, list)
}

// ListForLink GET /api/visits/link/:slug，属主或管理员可见
func (h *VisitHandler) ListForLink(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}

	username, isAdmin := currentUser(c)
	visits, total, err := h.visits.ListForLink(c.Request.Context(), c.Param("slug"), username, isAdmin, q.Page, q.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.toPage(q, total, visits))
}

// CountForLink GET /api/visits/link/:slug/count
func (h *VisitHandler) CountForLink(c *gin.Context) {
	username, isAdmin := currentUser(c)
	count, err := h.visits.CountForLink(c.Request.Context(), c.Param("slug"), username, isAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, count)
}

// AnalyticsForLink GET /api/visits/link/:slug/analytics
func (h *VisitHandler) AnalyticsForLink(c *gin.Context) {
	username, isAdmin := currentUser(c)
	analytics, err := h.visits.AnalyticsForLink(c.Request.Context(), c.Param("slug"), username, isAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// DailyForLink GET /api/visits/link/:slug/daily，定时任务聚合的每日汇总
func (h *VisitHandler) DailyForLink(c *gin.Context) {
	username, isAdmin := currentUser(c)
	stats, err := h.visits.DailyForLink(c.Request.Context(), c.Param("slug"), username, isAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListForUser GET /api/visits，当前用户名下所有短链的访问记录
func (h *VisitHandler) ListForUser(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}

	username, _ := currentUser(c)
	visits, total, err := h.visits.ListForUser(c.Request.Context(), username, q.Page, q.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.toPage(q, total, visits))
}

// CountForUser GET /api/visits/count
func (h *VisitHandler) CountForUser(c *gin.Context) {
	username, _ := currentUser(c)
	count, err := h.visits.CountForUser(c.Request.Context(), username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, count)
}

// AnalyticsForUser GET /api/visits/analytics
func (h *VisitHandler) AnalyticsForUser(c *gin.Context) {
	username, _ := currentUser(c)
	analytics, err := h.visits.AnalyticsForUser(c.Request.Context(), username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ListAll GET /api/visits/all，全站访问记录，管理员专用
func (h *VisitHandler) ListAll(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}

	visits, total, err := h.visits.ListAll(c.Request.Context(), q.Page, q.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.toPage(q, total, visits))
}

// AnalyticsAll GET /api/visits/all/analytics，管理员专用
func (h *VisitHandler) AnalyticsAll(c *gin.Context) {
	analytics, err := h.visits.AnalyticsAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// Redirects GET /api/visits/redirects，管理员专用。
// 访问表对 404/500 同样落库，这个视角和 /all 一致。
func (h *VisitHandler) Redirects(c *gin.Context) {
	h.ListAll(c)
}
