package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"linkhub-go/internal/model"
)

// VisitListQuery 访问记录分页查询条件，Slug/CreatedBy 为空表示不过滤
type VisitListQuery struct {
	Slug      *string
	CreatedBy *string
	Page      int
	Size      int
}

// DateBucket 按天分组的访问量
type DateBucket struct {
	Date  time.Time
	Count int64
}

// LabelBucket 按单列取值分组的访问量
type LabelBucket struct {
	Label string
	Count int64
}

// DayCount 某条短链某天的访问量，供每日汇总任务使用
type DayCount struct {
	ShortLinkID uint
	Date        time.Time
	Count       int64
}

// VisitRepository 访问记录存取接口
type VisitRepository interface {
	Create(ctx context.Context, visit *model.Visit) error
	List(ctx context.Context, q VisitListQuery) ([]model.Visit, int64, error)
	Count(ctx context.Context, q VisitListQuery) (int64, error)
	CountByShortLinkID(ctx context.Context, shortLinkID uint) (int64, error)
	VisitsByDate(ctx context.Context, shortLinkID uint) ([]DateBucket, error)
	VisitsByCountry(ctx context.Context, shortLinkID uint) ([]LabelBucket, error)
	VisitsByDevice(ctx context.Context, shortLinkID uint) ([]LabelBucket, error)
	VisitsByBrowser(ctx context.Context, shortLinkID uint) ([]LabelBucket, error)
	DailyCounts(ctx context.Context, since time.Time) ([]DayCount, error)
}

type gormVisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &gormVisitRepository{db: db}
}

func (r *gormVisitRepository) Create(ctx context.Context, visit *model.Visit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

func (r *gormVisitRepository) scoped(ctx context.Context, q VisitListQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Visit{})
	if q.Slug != nil {
		db = db.Where("LOWER(slug) = ?", strings.ToLower(*q.Slug))
	}
	if q.CreatedBy != nil {
		db = db.Where("created_by = ?", *q.CreatedBy)
	}
	return db
}

// List 按创建时间倒序分页
func (r *gormVisitRepository) List(ctx context.Context, q VisitListQuery) ([]model.Visit, int64, error) {
	db := r.scoped(ctx, q)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Visit{}, 0, nil
	}

	var visits []model.Visit
	err := db.
		Order("created_at DESC").
		Limit(q.Size).
		Offset(q.Page * q.Size).
		Find(&visits).Error
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

func (r *gormVisitRepository) Count(ctx context.Context, q VisitListQuery) (int64, error) {
	var total int64
	err := r.scoped(ctx, q).Count(&total).Error
	return total, err
}

func (r *gormVisitRepository) CountByShortLinkID(ctx context.Context, shortLinkID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Where("short_link_id = ?", shortLinkID).
		Count(&total).Error
	return total, err
}

// VisitsByDate 按天分组，最近的日期在前
func (r *gormVisitRepository) VisitsByDate(ctx context.Context, shortLinkID uint) ([]DateBucket, error) {
	var buckets []DateBucket
	err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select("CAST(created_at AS DATE) AS date, COUNT(*) AS count").
		Where("short_link_id = ?", shortLinkID).
		Group("CAST(created_at AS DATE)").
		Order("date DESC").
		Scan(&buckets).Error
	return buckets, err
}

// 分组列白名单，NULL 与空串不参与分组
var visitLabelColumns = map[string]string{
	"country": "country_code",
	"device":  "device_type",
	"browser": "browser",
}

func (r *gormVisitRepository) visitsByLabel(ctx context.Context, shortLinkID uint, key string) ([]LabelBucket, error) {
	column, ok := visitLabelColumns[key]
	if !ok {
		return nil, fmt.Errorf("unknown visit label column: %q", key)
	}

	var buckets []LabelBucket
	err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select(column+" AS label, COUNT(*) AS count").
		Where("short_link_id = ?", shortLinkID).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Group(column).
		Order("count DESC").
		Scan(&buckets).Error
	return buckets, err
}

func (r *gormVisitRepository) VisitsByCountry(ctx context.Context, shortLinkID uint) ([]LabelBucket, error) {
	return r.visitsByLabel(ctx, shortLinkID, "country")
}

func (r *gormVisitRepository) VisitsByDevice(ctx context.Context, shortLinkID uint) ([]LabelBucket, error) {
	return r.visitsByLabel(ctx, shortLinkID, "device")
}

func (r *gormVisitRepository) VisitsByBrowser(ctx context.Context, shortLinkID uint) ([]LabelBucket, error) {
	return r.visitsByLabel(ctx, shortLinkID, "browser")
}

// DailyCounts 汇总 since 之后每条短链每天的访问量，未命中短链的记录不计入
func (r *gormVisitRepository) DailyCounts(ctx context.Context, since time.Time) ([]DayCount, error) {
	var counts []DayCount
	err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select("short_link_id, CAST(created_at AS DATE) AS date, COUNT(*) AS count").
		Where("created_at >= ? AND short_link_id IS NOT NULL", since).
		Group("short_link_id, CAST(created_at AS DATE)").
		Scan(&counts).Error
	return counts, err
}
