package dto

import (
	"time"

	"linkhub-go/internal/model"
)

// CreateShortLinkRequest 创建短链请求，slug 留空时由服务端随机生成
type CreateShortLinkRequest struct {
	URL       string     `json:"url" binding:"required" msg:"error.url_required"`
	Slug      string     `json:"slug" binding:"omitempty,max=50" msg:"error.slug_invalid"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ListShortLinksQuery 分页查询参数，page 从 0 开始
type ListShortLinksQuery struct {
	Page    int    `form:"page,default=0" binding:"min=0" msg:"error.page_invalid"`
	Size    int    `form:"size,default=20" binding:"min=1,max=100" msg:"error.size_invalid"`
	SortBy  string `form:"sortBy,default=createdAt" binding:"oneof=createdAt clickCount slug"`
	SortDir string `form:"sortDir,default=desc" binding:"oneof=asc desc"`
}

// ShortLinkResponse 短链响应，shortUrl 由服务端 base_url 拼接
type ShortLinkResponse struct {
	ID          uint       `json:"id"`
	Slug        string     `json:"slug"`
	ShortURL    string     `json:"shortUrl"`
	OriginalURL string     `json:"originalUrl"`
	ClickCount  int64      `json:"clickCount"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedBy   *string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewShortLinkResponse 从模型构造响应
func NewShortLinkResponse(link *model.ShortLink, baseURL string) ShortLinkResponse {
	return ShortLinkResponse{
		ID:          link.ID,
		Slug:        link.Slug,
		ShortURL:    baseURL + "/" + link.Slug,
		OriginalURL: link.OriginalURL,
		ClickCount:  link.ClickCount,
		IsActive:    link.IsActive,
		ExpiresAt:   link.ExpiresAt,
		CreatedBy:   link.CreatedBy,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// LinkStatsResponse 短链聚合统计
type LinkStatsResponse struct {
	TotalLinks           int64   `json:"totalLinks"`
	TotalClicks          int64   `json:"totalClicks"`
	ActiveLinks          int64   `json:"activeLinks"`
	AverageClicksPerLink float64 `json:"averageClicksPerLink"`
}
