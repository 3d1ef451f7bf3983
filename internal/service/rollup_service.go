package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"linkhub-go/internal/repository"
)

// RollupService 把访问明细聚合成每日汇总行，由定时任务驱动
type RollupService struct {
	visits repository.VisitRepository
	stats  repository.DailyVisitStatRepository
	logger *zap.Logger
}

func NewRollupService(visits repository.VisitRepository, stats repository.DailyVisitStatRepository, logger *zap.Logger) *RollupService {
	return &RollupService{visits: visits, stats: stats, logger: logger}
}

// Run 汇总从昨天零点起的访问量，按短链按天写入汇总表。
// 同一天重复执行会覆盖当天计数，任务可以安全重跑。
func (s *RollupService) Run(ctx context.Context) error {
	s.logger.Info("Daily visit rollup start")

	now := time.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)

	counts, err := s.visits.DailyCounts(ctx, since)
	if err != nil {
		s.logger.Error("Failed to aggregate daily visit counts", zap.Error(err))
		return err
	}

	for _, c := range counts {
		date := c.Date.Format("2006-01-02")
		if err := s.stats.Upsert(ctx, c.ShortLinkID, date, c.Count); err != nil {
			s.logger.Error("Failed to upsert daily stat",
				zap.Uint("short_link_id", c.ShortLinkID),
				zap.String("date", date),
				zap.Int64("visits", c.Count),
				zap.Error(err))
		}
	}

	s.logger.Info("Daily visit rollup end", zap.Int("buckets", len(counts)))
	return nil
}
