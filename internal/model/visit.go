package model

// Visit 一次重定向路径请求的访问记录，成功与否都会落一行，只写不改
type Visit struct {
	BaseModel
	ShortLinkID     *uint   `gorm:"index" json:"shortLinkId,omitempty"` // 未命中短链时为空（404 同样记录）
	Slug            string  `gorm:"size:50;index;not null" json:"slug"` // 冗余保存请求的 slug
	IPAddress       string  `gorm:"size:45" json:"ipAddress"`
	UserAgent       string  `gorm:"type:text" json:"userAgent"`
	Referrer        string  `gorm:"type:text" json:"referrer"`
	StatusCode      int     `json:"statusCode"`
	CountryCode     string  `gorm:"size:2" json:"countryCode"`
	DeviceType      string  `gorm:"size:20" json:"deviceType"`
	Browser         string  `gorm:"size:50" json:"browser"`
	OperatingSystem string  `gorm:"size:50" json:"operatingSystem"`
	CreatedBy       *string `gorm:"size:255;index" json:"createdBy,omitempty"` // 写入时冗余的链接属主，避免查询联表
}
