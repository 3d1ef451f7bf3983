package repository

import (
	"context"

	"gorm.io/gorm"

	"linkhub-go/internal/model"
)

// DailyVisitStatRepository 每日访问汇总存取接口
type DailyVisitStatRepository interface {
	Upsert(ctx context.Context, shortLinkID uint, date string, visits int64) error
	ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]model.DailyVisitStat, error)
}

type gormDailyVisitStatRepository struct {
	db *gorm.DB
}

func NewDailyVisitStatRepository(db *gorm.DB) DailyVisitStatRepository {
	return &gormDailyVisitStatRepository{db: db}
}

// Upsert 同一条短链同一天只保留一行，重复汇总覆盖访问量
func (r *gormDailyVisitStatRepository) Upsert(ctx context.Context, shortLinkID uint, date string, visits int64) error {
	stat := model.DailyVisitStat{
		ShortLinkID: shortLinkID,
		Date:        date,
		Visits:      visits,
	}
	return r.db.WithContext(ctx).
		Where("short_link_id = ? AND date = ?", shortLinkID, date).
		Assign("visits", visits).
		FirstOrCreate(&stat).Error
}

func (r *gormDailyVisitStatRepository) ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]model.DailyVisitStat, error) {
	var stats []model.DailyVisitStat
	err := r.db.WithContext(ctx).
		Where("short_link_id = ?", shortLinkID).
		Order("date DESC").
		Find(&stats).Error
	return stats, err
}
