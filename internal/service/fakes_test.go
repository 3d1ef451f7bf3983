package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"linkhub-go/internal/model"
	"linkhub-go/internal/repository"
)

func ptr(s string) *string { return &s }

// fakeLinkRepo 内存版短链仓储，带可注入的错误和阻塞开关
type fakeLinkRepo struct {
	mu     sync.Mutex
	nextID uint
	links  map[uint]*model.ShortLink

	findErr      error // FindBySlug 返回的注入错误
	alwaysExists bool  // ExistsBySlug 恒真，用来耗尽随机短码重试

	// 非空时 IncrementClickCount 先发信号、再等 release，方便测并发上限
	incrementStarted chan struct{}
	incrementRelease chan struct{}
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[uint]*model.ShortLink)}
}

// add 直接塞入一条记录，绕过业务校验
func (f *fakeLinkRepo) add(link model.ShortLink) model.ShortLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	link.ID = f.nextID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	stored := link
	f.links[link.ID] = &stored
	return link
}

func (f *fakeLinkRepo) clickCount(slug string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			return l.ClickCount
		}
	}
	return 0
}

func (f *fakeLinkRepo) Create(ctx context.Context, link *model.ShortLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	link.ID = f.nextID
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	stored := *link
	f.links[link.ID] = &stored
	return nil
}

func (f *fakeLinkRepo) FindBySlug(ctx context.Context, slug string) (*model.ShortLink, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			found := *l
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLinkRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if f.alwaysExists {
		return true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLinkRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, id)
	return nil
}

func (f *fakeLinkRepo) IncrementClickCount(ctx context.Context, slug string) error {
	if f.incrementStarted != nil {
		f.incrementStarted <- struct{}{}
		<-f.incrementRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			l.ClickCount++
		}
	}
	return nil
}

// List 忽略分页和排序，按属主过滤后全量返回
func (f *fakeLinkRepo) List(ctx context.Context, q repository.LinkListQuery) ([]model.ShortLink, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ShortLink{}
	for _, l := range f.links {
		if q.CreatedBy != nil && (l.CreatedBy == nil || *l.CreatedBy != *q.CreatedBy) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLinkRepo) Stats(ctx context.Context, createdBy *string) (repository.LinkStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats repository.LinkStats
	for _, l := range f.links {
		if createdBy != nil && (l.CreatedBy == nil || *l.CreatedBy != *createdBy) {
			continue
		}
		stats.TotalLinks++
		stats.TotalClicks += l.ClickCount
		if l.IsValid() {
			stats.ActiveLinks++
		}
	}
	return stats, nil
}

// fakeVisitRepo 内存版访问记录仓储，分组统计返回预置数据
type fakeVisitRepo struct {
	mu     sync.Mutex
	nextID uint
	visits []model.Visit

	// 非空时 Create 先发信号、再等 release，方便测队列满时的丢弃
	createStarted chan struct{}
	createRelease chan struct{}

	byDate    []repository.DateBucket
	byCountry []repository.LabelBucket
	byDevice  []repository.LabelBucket
	byBrowser []repository.LabelBucket
	daily     []repository.DayCount
	dailyErr  error
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{}
}

// seed 直接塞入一条访问记录
func (f *fakeVisitRepo) seed(v model.Visit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	v.ID = f.nextID
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	f.visits = append(f.visits, v)
}

func (f *fakeVisitRepo) all() []model.Visit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Visit(nil), f.visits...)
}

func (f *fakeVisitRepo) Create(ctx context.Context, visit *model.Visit) error {
	if f.createStarted != nil {
		f.createStarted <- struct{}{}
		<-f.createRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	visit.ID = f.nextID
	visit.CreatedAt = time.Now()
	f.visits = append(f.visits, *visit)
	return nil
}

func (f *fakeVisitRepo) filter(q repository.VisitListQuery) []model.Visit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Visit{}
	for _, v := range f.visits {
		if q.Slug != nil && !strings.EqualFold(v.Slug, *q.Slug) {
			continue
		}
		if q.CreatedBy != nil && (v.CreatedBy == nil || *v.CreatedBy != *q.CreatedBy) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (f *fakeVisitRepo) List(ctx context.Context, q repository.VisitListQuery) ([]model.Visit, int64, error) {
	matched := f.filter(q)
	return matched, int64(len(matched)), nil
}

func (f *fakeVisitRepo) Count(ctx context.Context, q repository.VisitListQuery) (int64, error) {
	return int64(len(f.filter(q))), nil
}

func (f *fakeVisitRepo) CountByShortLinkID(ctx context.Context, shortLinkID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.visits {
		if v.ShortLinkID != nil && *v.ShortLinkID == shortLinkID {
			n++
		}
	}
	return n, nil
}

func (f *fakeVisitRepo) VisitsByDate(ctx context.Context, shortLinkID uint) ([]repository.DateBucket, error) {
	return f.byDate, nil
}

func (f *fakeVisitRepo) VisitsByCountry(ctx context.Context, shortLinkID uint) ([]repository.LabelBucket, error) {
	return f.byCountry, nil
}

func (f *fakeVisitRepo) VisitsByDevice(ctx context.Context, shortLinkID uint) ([]repository.LabelBucket, error) {
	return f.byDevice, nil
}

func (f *fakeVisitRepo) VisitsByBrowser(ctx context.Context, shortLinkID uint) ([]repository.LabelBucket, error) {
	return f.byBrowser, nil
}

func (f *fakeVisitRepo) DailyCounts(ctx context.Context, since time.Time) ([]repository.DayCount, error) {
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	return f.daily, nil
}

type statKey struct {
	shortLinkID uint
	date        string
}

// fakeStatRepo 内存版每日汇总仓储
type fakeStatRepo struct {
	mu     sync.Mutex
	rows   map[statKey]int64
	failID uint // Upsert 对该短链 ID 返回错误
	list   []model.DailyVisitStat
}

func newFakeStatRepo() *fakeStatRepo {
	return &fakeStatRepo{rows: make(map[statKey]int64)}
}

func (f *fakeStatRepo) get(shortLinkID uint, date string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[statKey{shortLinkID, date}]
}

func (f *fakeStatRepo) Upsert(ctx context.Context, shortLinkID uint, date string, visits int64) error {
	if f.failID != 0 && shortLinkID == f.failID {
		return errors.New("upsert failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[statKey{shortLinkID, date}] = visits
	return nil
}

func (f *fakeStatRepo) ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]model.DailyVisitStat, error) {
	return f.list, nil
}

// fakeUserRepo 内存版用户仓储
type fakeUserRepo struct {
	mu        sync.Mutex
	nextID    uint
	users     map[string]*model.User
	lastLogin map[uint]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[string]*model.User),
		lastLogin: make(map[uint]time.Time),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.Username] = &stored
	return nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *u
	return &found, nil
}

func (f *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin[id] = at
	return nil
}
