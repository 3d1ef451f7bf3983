package model

// DailyVisitStat 按天汇总的访问量，由定时任务从 Visit 表聚合而来
type DailyVisitStat struct {
	BaseModel
	ShortLinkID uint   `gorm:"index;not null" json:"shortLinkId"`
	Date        string `gorm:"type:date;index;not null" json:"date"` // YYYY-MM-DD
	Visits      int64  `gorm:"not null;default:0" json:"visits"`
}
