package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/dto"
	"linkhub-go/internal/model"
	"linkhub-go/internal/repository"
	"linkhub-go/pkg/useragent"
)

// RecordVisitInput 一次跳转请求的全部元数据。
// 字段在响应写出之前从请求中提取，后台落库时不再接触请求对象。
type RecordVisitInput struct {
	Slug       string
	IPAddress  string
	UserAgent  string
	Referrer   string
	StatusCode int
}

// VisitService 访问记录的写入与查询
type VisitService struct {
	visits repository.VisitRepository
	links  repository.LinkRepository
	stats  repository.DailyVisitStatRepository
	logger *zap.Logger
}

func NewVisitService(
	visits repository.VisitRepository,
	links repository.LinkRepository,
	stats repository.DailyVisitStatRepository,
	logger *zap.Logger,
) *VisitService {
	return &VisitService{
		visits: visits,
		links:  links,
		stats:  stats,
		logger: logger,
	}
}

// Record 写入一条访问记录。短码查不到也照样落库（404 同样要记录），
// 短链引用和冗余的属主字段留空。整条路径上的任何失败只记日志，
// 绝不向调用方传播，访问日志不能拖垮跳转。
func (s *VisitService) Record(ctx context.Context, in RecordVisitInput) {
	visit := &model.Visit{
		Slug:       in.Slug,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		Referrer:   in.Referrer,
		StatusCode: in.StatusCode,
	}

	link, err := s.links.FindBySlug(ctx, in.Slug)
	if err == nil {
		visit.ShortLinkID = &link.ID
		visit.CreatedBy = link.CreatedBy
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Failed to look up link while recording visit",
			zap.String("slug", in.Slug), zap.Error(err))
	}

	if in.UserAgent != "" {
		ua := useragent.Classify(in.UserAgent)
		visit.DeviceType = ua.DeviceType
		visit.Browser = ua.Browser
		visit.OperatingSystem = ua.OperatingSystem
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		s.logger.Error("Failed to record visit",
			zap.String("slug", in.Slug),
			zap.Int("status_code", in.StatusCode),
			zap.Error(err))
		return
	}

	s.logger.Debug("Recorded visit",
		zap.String("slug", in.Slug),
		zap.Int("status_code", in.StatusCode))
}

// requireLink 解析短链并做属主校验，/api/visits/link/* 端点共用。
// 未知短码返回 404，非属主且非管理员返回 403。
func (s *VisitService) requireLink(ctx context.Context, slug, requester string, isAdmin bool) (*model.ShortLink, error) {
	link, err := s.links.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFoundError("error.link_not_found")
		}
		s.logger.Error("Failed to query short link", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	if !isAdmin && (link.CreatedBy == nil || *link.CreatedBy != requester) {
		return nil, apperrors.ForbiddenError("error.forbidden")
	}
	return link, nil
}

// ListForLink 某条短链的访问记录，按时间倒序分页
func (s *VisitService) ListForLink(ctx context.Context, slug, requester string, isAdmin bool, page, size int) ([]model.Visit, int64, error) {
	if _, err := s.requireLink(ctx, slug, requester, isAdmin); err != nil {
		return nil, 0, err
	}

	visits, total, err := s.visits.List(ctx, repository.VisitListQuery{
		Slug: &slug,
		Page: page,
		Size: size,
	})
	if err != nil {
		s.logger.Error("Failed to list visits", zap.String("slug", slug), zap.Error(err))
		return nil, 0, apperrors.SystemErrorDefault()
	}
	return visits, total, nil
}

// CountForLink 某条短链的访问次数，按短码计数，404 记录同样计入
func (s *VisitService) CountForLink(ctx context.Context, slug, requester string, isAdmin bool) (*dto.VisitCountResponse, error) {
	link, err := s.requireLink(ctx, slug, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	count, err := s.visits.Count(ctx, repository.VisitListQuery{Slug: &slug})
	if err != nil {
		s.logger.Error("Failed to count visits", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &dto.VisitCountResponse{Slug: link.Slug, VisitCount: count}, nil
}

// AnalyticsForLink 某条短链的分组统计：总量 + 按日期/国家/设备/浏览器
func (s *VisitService) AnalyticsForLink(ctx context.Context, slug, requester string, isAdmin bool) (*dto.LinkAnalyticsResponse, error) {
	link, err := s.requireLink(ctx, slug, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	total, err := s.visits.CountByShortLinkID(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to count visits", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	byDate, err := s.visits.VisitsByDate(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to group visits by date", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	byCountry, err := s.visits.VisitsByCountry(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to group visits by country", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	byDevice, err := s.visits.VisitsByDevice(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to group visits by device", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	byBrowser, err := s.visits.VisitsByBrowser(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to group visits by browser", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	resp := &dto.LinkAnalyticsResponse{
		Slug:            link.Slug,
		TotalVisits:     total,
		VisitsByDate:    make([]dto.DateCount, 0, len(byDate)),
		VisitsByCountry: toLabelCounts(byCountry),
		VisitsByDevice:  toLabelCounts(byDevice),
		VisitsByBrowser: toLabelCounts(byBrowser),
	}
	for _, b := range byDate {
		resp.VisitsByDate = append(resp.VisitsByDate, dto.DateCount{
			Date:  b.Date.Format("2006-01-02"),
			Count: b.Count,
		})
	}
	return resp, nil
}

func toLabelCounts(buckets []repository.LabelBucket) []dto.LabelCount {
	counts := make([]dto.LabelCount, 0, len(buckets))
	for _, b := range buckets {
		counts = append(counts, dto.LabelCount{Label: b.Label, Count: b.Count})
	}
	return counts
}

// DailyForLink 某条短链的每日汇总行，来自定时任务聚合的结果表
func (s *VisitService) DailyForLink(ctx context.Context, slug, requester string, isAdmin bool) ([]model.DailyVisitStat, error) {
	link, err := s.requireLink(ctx, slug, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.ListByShortLinkID(ctx, link.ID)
	if err != nil {
		s.logger.Error("Failed to list daily stats", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return stats, nil
}

// ListForUser 当前用户名下所有短链的访问记录
func (s *VisitService) ListForUser(ctx context.Context, username string, page, size int) ([]model.Visit, int64, error) {
	visits, total, err := s.visits.List(ctx, repository.VisitListQuery{
		CreatedBy: &username,
		Page:      page,
		Size:      size,
	})
	if err != nil {
		s.logger.Error("Failed to list visits", zap.String("username", username), zap.Error(err))
		return nil, 0, apperrors.SystemErrorDefault()
	}
	return visits, total, nil
}

// CountForUser 当前用户名下的访问次数
func (s *VisitService) CountForUser(ctx context.Context, username string) (*dto.UserVisitCountResponse, error) {
	count, err := s.visits.Count(ctx, repository.VisitListQuery{CreatedBy: &username})
	if err != nil {
		s.logger.Error("Failed to count visits", zap.String("username", username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &dto.UserVisitCountResponse{Username: username, VisitCount: count}, nil
}

// AnalyticsForUser 当前用户名下的访问总量
func (s *VisitService) AnalyticsForUser(ctx context.Context, username string) (*dto.UserAnalyticsResponse, error) {
	count, err := s.visits.Count(ctx, repository.VisitListQuery{CreatedBy: &username})
	if err != nil {
		s.logger.Error("Failed to count visits", zap.String("username", username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &dto.UserAnalyticsResponse{Username: username, TotalVisits: count}, nil
}

// ListAll 全站访问记录，管理员专用
func (s *VisitService) ListAll(ctx context.Context, page, size int) ([]model.Visit, int64, error) {
	visits, total, err := s.visits.List(ctx, repository.VisitListQuery{Page: page, Size: size})
	if err != nil {
		s.logger.Error("Failed to list visits", zap.Error(err))
		return nil, 0, apperrors.SystemErrorDefault()
	}
	return visits, total, nil
}

// AnalyticsAll 全站访问总量，管理员专用
func (s *VisitService) AnalyticsAll(ctx context.Context) (*dto.GlobalAnalyticsResponse, error) {
	count, err := s.visits.Count(ctx, repository.VisitListQuery{})
	if err != nil {
		s.logger.Error("Failed to count visits", zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &dto.GlobalAnalyticsResponse{TotalVisits: count}, nil
}
