package dto

import (
	"time"

	"linkhub-go/internal/model"
)

// ListVisitsQuery 访问记录分页参数，page 从 0 开始
type ListVisitsQuery struct {
	Page int `form:"page,default=0" binding:"min=0" msg:"error.page_invalid"`
	Size int `form:"size,default=20" binding:"min=1,max=100" msg:"error.size_invalid"`
}

// VisitResponse 访问记录响应
type VisitResponse struct {
	ID              uint      `json:"id"`
	Slug            string    `json:"slug"`
	ShortURL        string    `json:"shortUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	IPAddress       string    `json:"ipAddress"`
	UserAgent       string    `json:"userAgent"`
	Referrer        string    `json:"referrer"`
	StatusCode      int       `json:"statusCode"`
	CountryCode     string    `json:"countryCode,omitempty"`
	DeviceType      string    `json:"deviceType,omitempty"`
	Browser         string    `json:"browser,omitempty"`
	OperatingSystem string    `json:"operatingSystem,omitempty"`
}

// NewVisitResponse 从模型构造响应
func NewVisitResponse(v *model.Visit, baseURL string) VisitResponse {
	resp := VisitResponse{
		ID:              v.ID,
		Slug:            v.Slug,
		CreatedAt:       v.CreatedAt,
		IPAddress:       v.IPAddress,
		UserAgent:       v.UserAgent,
		Referrer:        v.Referrer,
		StatusCode:      v.StatusCode,
		CountryCode:     v.CountryCode,
		DeviceType:      v.DeviceType,
		Browser:         v.Browser,
		OperatingSystem: v.OperatingSystem,
	}
	if v.Slug != "" {
		resp.ShortURL = baseURL + "/" + v.Slug
	}
	return resp
}

// DateCount 按日期分组的计数，date 为 YYYY-MM-DD
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// LabelCount 按标签分组的计数
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// LinkAnalyticsResponse 单条短链的访问分析
type LinkAnalyticsResponse struct {
	Slug            string       `json:"slug"`
	TotalVisits     int64        `json:"totalVisits"`
	VisitsByDate    []DateCount  `json:"visitsByDate"`
	VisitsByCountry []LabelCount `json:"visitsByCountry"`
	VisitsByDevice  []LabelCount `json:"visitsByDevice"`
	VisitsByBrowser []LabelCount `json:"visitsByBrowser"`
}

// UserAnalyticsResponse 用户名下所有短链的访问总量
type UserAnalyticsResponse struct {
	Username    string `json:"username"`
	TotalVisits int64  `json:"totalVisits"`
}

// GlobalAnalyticsResponse 全站访问总量
type GlobalAnalyticsResponse struct {
	TotalVisits int64 `json:"totalVisits"`
}

// VisitCountResponse 单条短链访问次数
type VisitCountResponse struct {
	Slug       string `json:"slug"`
	VisitCount int64  `json:"visitCount"`
}

// UserVisitCountResponse 用户名下访问次数
type UserVisitCountResponse struct {
	Username   string `json:"username"`
	VisitCount int64  `json:"visitCount"`
}
