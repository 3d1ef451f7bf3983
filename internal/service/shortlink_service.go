package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkhub-go/constant"
	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/cache"
	"linkhub-go/internal/dto"
	"linkhub-go/internal/model"
	"linkhub-go/internal/repository"
	"linkhub-go/pkg/utils"
)

// ErrLinkNotFound 短链不存在或已失效（停用/过期）。
// 跳转路径对两种情况统一按未找到处理，避免暴露短码是否被占用过。
var ErrLinkNotFound = errors.New("short link not found")

// 随机短码的最大重试次数，62^6 的键空间下几乎不会用尽
const maxSlugAttempts = 10

// ShortLinkService 短链业务逻辑，依赖全部通过构造函数注入
type ShortLinkService struct {
	links        repository.LinkRepository
	cache        cache.LinkCache
	logger       *zap.Logger
	linkTTL      time.Duration
	incrementSem chan struct{}
}

func NewShortLinkService(
	links repository.LinkRepository,
	linkCache cache.LinkCache,
	logger *zap.Logger,
	linkTTL time.Duration,
	maxConcurrentIncrements int,
) *ShortLinkService {
	if maxConcurrentIncrements < 1 {
		maxConcurrentIncrements = 1
	}
	return &ShortLinkService{
		links:        links,
		cache:        linkCache,
		logger:       logger,
		linkTTL:      linkTTL,
		incrementSem: make(chan struct{}, maxConcurrentIncrements),
	}
}

// Create 创建短链，createdBy 为 nil 表示匿名创建（控制台命令）
func (s *ShortLinkService) Create(ctx context.Context, req dto.CreateShortLinkRequest, createdBy *string) (*model.ShortLink, error) {
	normalized := utils.NormalizeURL(req.URL)
	if err := utils.ValidateTargetURL(normalized); err != nil {
		return nil, apperrors.InvalidRequestError(err.Error())
	}

	slug := strings.TrimSpace(req.Slug)
	if slug != "" {
		if !utils.IsValidSlug(slug) {
			return nil, apperrors.InvalidRequestError("error.slug_invalid")
		}
		if utils.IsReservedSlug(slug) {
			return nil, apperrors.InvalidRequestError("error.slug_reserved")
		}
		exists, err := s.links.ExistsBySlug(ctx, slug)
		if err != nil {
			s.logger.Error("Failed to check slug existence", zap.String("slug", slug), zap.Error(err))
			return nil, apperrors.SystemErrorDefault()
		}
		if exists {
			return nil, apperrors.InvalidRequestError("error.slug_exists")
		}
	} else {
		generated, err := s.generateUniqueSlug(ctx)
		if err != nil {
			return nil, err
		}
		slug = generated
	}

	link := &model.ShortLink{
		Slug:        slug,
		OriginalURL: normalized,
		ClickCount:  0,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   createdBy,
	}
	if err := s.links.Create(ctx, link); err != nil {
		s.logger.Error("Failed to persist short link", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return link, nil
}

// generateUniqueSlug 生成随机短码并做大小写不敏感的存在性检查。
// 随机短码只含字母数字，长度固定，天然不会撞上保留字。
func (s *ShortLinkService) generateUniqueSlug(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate, err := utils.GenerateRandomSlug()
		if err != nil {
			s.logger.Error("Failed to generate random slug", zap.Error(err))
			return "", apperrors.SystemErrorDefault()
		}
		exists, err := s.links.ExistsBySlug(ctx, candidate)
		if err != nil {
			s.logger.Error("Failed to check slug existence", zap.String("slug", candidate), zap.Error(err))
			return "", apperrors.SystemErrorDefault()
		}
		if !exists {
			return candidate, nil
		}
	}
	s.logger.Error("Slug generation exhausted retry budget", zap.Int("attempts", maxSlugAttempts))
	return "", apperrors.SystemError("error.slug_exhausted")
}

// Get 按短码查询，匹配大小写不敏感
func (s *ShortLinkService) Get(ctx context.Context, slug string) (*model.ShortLink, error) {
	link, err := s.links.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFoundError("error.link_not_found")
		}
		s.logger.Error("Failed to query short link", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return link, nil
}

// Resolve 跳转路径的核心查找：先查缓存，未命中回源数据库并回填。
// 缓存值是整条短链记录，命中后仍会校验有效性，停用或过期的记录即使
// 还留在缓存里也按未找到处理。未命中不写空值，短码随时可能被创建。
func (s *ShortLinkService) Resolve(ctx context.Context, slug string) (string, error) {
	cacheKey := constant.GetShortLinkKey(slug)

	cached, hit, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.logger.Warn("Error getting from cache", zap.String("cache_key", cacheKey), zap.Error(err))
	} else if hit {
		var link model.ShortLink
		if err := json.Unmarshal([]byte(cached), &link); err != nil {
			s.logger.Warn("Failed to unmarshal cached value", zap.String("cache_key", cacheKey), zap.Error(err))
		} else if link.IsValid() {
			return link.OriginalURL, nil
		} else {
			// 缓存里的记录已失效，顺手清掉
			if err := s.cache.Delete(ctx, cacheKey); err != nil {
				s.logger.Warn("Failed to evict stale cache entry", zap.String("cache_key", cacheKey), zap.Error(err))
			}
			return "", ErrLinkNotFound
		}
	}

	link, err := s.links.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrLinkNotFound
		}
		return "", err
	}
	if !link.IsValid() {
		return "", ErrLinkNotFound
	}

	if payload, err := json.Marshal(link); err != nil {
		s.logger.Warn("Failed to marshal link for cache", zap.String("cache_key", cacheKey), zap.Error(err))
	} else if err := s.cache.Set(ctx, cacheKey, string(payload), s.linkTTL); err != nil {
		s.logger.Warn("Failed to populate cache", zap.String("cache_key", cacheKey), zap.Error(err))
	}

	return link.OriginalURL, nil
}

// IncrementClicks 点击数自增。计数器按最终一致对待，不失效缓存。
func (s *ShortLinkService) IncrementClicks(ctx context.Context, slug string) error {
	return s.links.IncrementClickCount(ctx, slug)
}

// TryIncrementClicks 在有界并发度内异步自增点击数，超出上限直接丢弃。
// 任何失败只记录日志，绝不影响已经发出的跳转响应。
func (s *ShortLinkService) TryIncrementClicks(slug string) {
	select {
	case s.incrementSem <- struct{}{}:
	default:
		s.logger.Warn("Click increment dropped, too many in flight", zap.String("slug", slug))
		return
	}

	go func() {
		defer func() { <-s.incrementSem }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.links.IncrementClickCount(ctx, slug); err != nil {
			s.logger.Warn("Failed to increment click count", zap.String("slug", slug), zap.Error(err))
		}
	}()
}

// List 分页查询，createdBy 为 nil 表示不限属主（管理员视角）
func (s *ShortLinkService) List(ctx context.Context, q dto.ListShortLinksQuery, createdBy *string) ([]model.ShortLink, int64, error) {
	links, total, err := s.links.List(ctx, repository.LinkListQuery{
		CreatedBy: createdBy,
		Page:      q.Page,
		Size:      q.Size,
		SortBy:    q.SortBy,
		SortDir:   q.SortDir,
	})
	if err != nil {
		s.logger.Error("Failed to list short links", zap.Error(err))
		return nil, 0, apperrors.SystemErrorDefault()
	}
	return links, total, nil
}

// Delete 删除短链并主动失效缓存；非属主且非管理员时拒绝
func (s *ShortLinkService) Delete(ctx context.Context, slug, requester string, isAdmin bool) error {
	link, err := s.links.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFoundError("error.link_not_found")
		}
		s.logger.Error("Failed to query short link", zap.String("slug", slug), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}

	if !isAdmin && (link.CreatedBy == nil || *link.CreatedBy != requester) {
		return apperrors.ForbiddenError("error.forbidden")
	}

	if err := s.links.Delete(ctx, link.ID); err != nil {
		s.logger.Error("Failed to delete short link", zap.String("slug", slug), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}

	cacheKey := constant.GetShortLinkKey(link.Slug)
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.logger.Warn("Failed to evict cache entry", zap.String("cache_key", cacheKey), zap.Error(err))
	}
	return nil
}

// Stats 聚合统计，createdBy 为 nil 表示全站
func (s *ShortLinkService) Stats(ctx context.Context, createdBy *string) (*dto.LinkStatsResponse, error) {
	stats, err := s.links.Stats(ctx, createdBy)
	if err != nil {
		s.logger.Error("Failed to aggregate link stats", zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	resp := &dto.LinkStatsResponse{
		TotalLinks:  stats.TotalLinks,
		TotalClicks: stats.TotalClicks,
		ActiveLinks: stats.ActiveLinks,
	}
	if stats.TotalLinks > 0 {
		resp.AverageClicksPerLink = float64(stats.TotalClicks) / float64(stats.TotalLinks)
	}
	return resp, nil
}
