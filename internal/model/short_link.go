package model

import "time"

// ShortLink 短链映射
type ShortLink struct {
	BaseModel
	Slug        string     `gorm:"uniqueIndex;size:50;not null" json:"slug"`
	OriginalURL string     `gorm:"size:2048;not null" json:"originalUrl"`
	ClickCount  int64      `gorm:"not null;default:0" json:"clickCount"`
	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedBy   *string    `gorm:"size:255;index" json:"createdBy,omitempty"` // 控制台创建的链接可以没有属主
}

// IsValid 短链有效：isActive 为真且未过期
func (l *ShortLink) IsValid() bool {
	if !l.IsActive {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(time.Now())
}
