package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"linkhub-go/internal/model"
)

// LinkListQuery 短链分页查询条件，CreatedBy 为空表示不限属主
type LinkListQuery struct {
	CreatedBy *string
	Page      int
	Size      int
	SortBy    string // createdAt | clickCount | slug
	SortDir   string // asc | desc
}

// LinkStats 短链聚合数字
type LinkStats struct {
	TotalLinks  int64
	TotalClicks int64
	ActiveLinks int64
}

// LinkRepository 短链存取接口
type LinkRepository interface {
	Create(ctx context.Context, link *model.ShortLink) error
	FindBySlug(ctx context.Context, slug string) (*model.ShortLink, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Delete(ctx context.Context, id uint) error
	IncrementClickCount(ctx context.Context, slug string) error
	List(ctx context.Context, q LinkListQuery) ([]model.ShortLink, int64, error)
	Stats(ctx context.Context, createdBy *string) (LinkStats, error)
}

// 排序字段白名单，防止拼接任意列名
var linkSortColumns = map[string]string{
	"createdAt":  "created_at",
	"clickCount": "click_count",
	"slug":       "slug",
}

type gormLinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &gormLinkRepository{db: db}
}

func (r *gormLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// FindBySlug 大小写不敏感查找
func (r *gormLinkRepository) FindBySlug(ctx context.Context, slug string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := r.db.WithContext(ctx).
		Where("LOWER(slug) = ?", strings.ToLower(slug)).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *gormLinkRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("LOWER(slug) = ?", strings.ToLower(slug)).
		Count(&count).Error
	return count > 0, err
}

func (r *gormLinkRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.ShortLink{}, id).Error
}

// IncrementClickCount 单条 UPDATE 自增，不触发 updated_at
func (r *gormLinkRepository) IncrementClickCount(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("LOWER(slug) = ?", strings.ToLower(slug)).
		UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error
}

func (r *gormLinkRepository) List(ctx context.Context, q LinkListQuery) ([]model.ShortLink, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.ShortLink{})
	if q.CreatedBy != nil {
		db = db.Where("created_by = ?", *q.CreatedBy)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.ShortLink{}, 0, nil
	}

	column, ok := linkSortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.SortDir, "asc") {
		direction = "ASC"
	}

	var links []model.ShortLink
	err := db.
		Order(column + " " + direction).
		Limit(q.Size).
		Offset(q.Page * q.Size).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *gormLinkRepository) Stats(ctx context.Context, createdBy *string) (LinkStats, error) {
	db := r.db.WithContext(ctx).Model(&model.ShortLink{})
	if createdBy != nil {
		db = db.Where("created_by = ?", *createdBy)
	}

	var stats LinkStats
	err := db.
		Select(
			"COUNT(*) AS total_links, "+
				"COALESCE(SUM(click_count), 0) AS total_clicks, "+
				"COALESCE(SUM(CASE WHEN is_active = true AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS active_links",
			time.Now(),
		).
		Scan(&stats).Error
	return stats, err
}
