package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkhub-go/internal/cache"
	"linkhub-go/internal/i18n"
	"linkhub-go/internal/jwt"
	"linkhub-go/internal/middleware"
	"linkhub-go/internal/model"
	"linkhub-go/internal/repository"
	"linkhub-go/internal/service"
)

func ptr(s string) *string { return &s }

// fakeLinkRepo 内存版短链仓储
type fakeLinkRepo struct {
	mu      sync.Mutex
	nextID  uint
	links   map[uint]*model.ShortLink
	findErr error // FindBySlug 返回的注入错误
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[uint]*model.ShortLink)}
}

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

func (f *fakeLinkRepo) has(slug string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			return true
		}
	}
	return false
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
	return f.has(slug), nil
}

func (f *fakeLinkRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, id)
	return nil
}

func (f *fakeLinkRepo) IncrementClickCount(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if strings.EqualFold(l.Slug, slug) {
			l.ClickCount++
		}
	}
	return nil
}

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

	byDate    []repository.DateBucket
	byCountry []repository.LabelBucket
	byDevice  []repository.LabelBucket
	byBrowser []repository.LabelBucket
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{}
}

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
	return nil, nil
}

// fakeStatRepo 内存版每日汇总仓储
type fakeStatRepo struct {
	list []model.DailyVisitStat
}

func newFakeStatRepo() *fakeStatRepo { return &fakeStatRepo{} }

func (f *fakeStatRepo) Upsert(ctx context.Context, shortLinkID uint, date string, visits int64) error {
	return nil
}

func (f *fakeStatRepo) ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]model.DailyVisitStat, error) {
	return f.list, nil
}

// fakeUserRepo 内存版用户仓储
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
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
	return nil
}

const testBaseURL = "http://sho.rt"

// testEnv 把真实的服务层、中间件和路由装配起来，只替换仓储层。
// 路由注册和生产环境保持一致（限流除外）。
type testEnv struct {
	links    *fakeLinkRepo
	visits   *fakeVisitRepo
	users    *fakeUserRepo
	stats    *fakeStatRepo
	tokens   *jwt.Manager
	recorder *service.VisitRecorder
	router   *gin.Engine

	closeOnce sync.Once
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bundle, err := i18n.InitI18n([]string{"../../i18n/en.toml", "../../i18n/zh.toml"}, "en")
	require.NoError(t, err)

	e := &testEnv{
		links:  newFakeLinkRepo(),
		visits: newFakeVisitRepo(),
		users:  newFakeUserRepo(),
		stats:  newFakeStatRepo(),
		tokens: jwt.NewManager("test-secret", time.Hour),
	}

	logger := zap.NewNop()
	linkSvc := service.NewShortLinkService(e.links, cache.NewMemoryLinkCache(), logger, time.Hour, 4)
	visitSvc := service.NewVisitService(e.visits, e.links, e.stats, logger)
	authSvc := service.NewAuthService(e.users, e.tokens, logger)
	e.recorder = service.NewVisitRecorder(visitSvc, 1, 16, logger)
	t.Cleanup(e.closeRecorder)

	redirectHandler := NewRedirectHandler(linkSvc, e.recorder, logger)
	linkHandler := NewShortLinkHandler(linkSvc, testBaseURL, logger)
	visitHandler := NewVisitHandler(visitSvc, testBaseURL, logger)
	authHandler := NewAuthHandler(authSvc, logger)
	healthHandler := NewHealthHandler("linkhub", "test")

	r := gin.New()
	r.Use(middleware.GlobalErrorMiddleware())
	r.Use(middleware.I18nMiddleware(bundle))

	api := r.Group("/api")
	api.GET("/health", healthHandler.Health)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWTAuthMiddleware(e.tokens), authHandler.Me)

	links := api.Group("/shortlinks", middleware.JWTAuthMiddleware(e.tokens))
	links.POST("", linkHandler.Create)
	links.GET("", linkHandler.List)
	links.GET("/all", middleware.AdminOnlyMiddleware(), linkHandler.ListAll)
	links.GET("/stats", linkHandler.Stats)
	links.GET("/stats/all", middleware.AdminOnlyMiddleware(), linkHandler.StatsAll)
	links.GET("/:slug", linkHandler.Get)
	links.DELETE("/:slug", linkHandler.Delete)
	links.GET("/:slug/qrcode", linkHandler.QRCode)

	visits := api.Group("/visits", middleware.JWTAuthMiddleware(e.tokens))
	visits.GET("", visitHandler.ListForUser)
	visits.GET("/count", visitHandler.CountForUser)
	visits.GET("/analytics", visitHandler.AnalyticsForUser)
	visits.GET("/all", middleware.AdminOnlyMiddleware(), visitHandler.ListAll)
	visits.GET("/all/analytics", middleware.AdminOnlyMiddleware(), visitHandler.AnalyticsAll)
	visits.GET("/redirects", middleware.AdminOnlyMiddleware(), visitHandler.Redirects)
	visits.GET("/link/:slug", visitHandler.ListForLink)
	visits.GET("/link/:slug/count", visitHandler.CountForLink)
	visits.GET("/link/:slug/analytics", visitHandler.AnalyticsForLink)
	visits.GET("/link/:slug/daily", visitHandler.DailyForLink)

	r.GET("/:slug", redirectHandler.Redirect)

	e.router = r
	return e
}

// closeRecorder 排空访问记录队列，断言落库内容前必须先调用。
// 幂等，测试结束时的 Cleanup 再调一次也无妨。
func (e *testEnv) closeRecorder() {
	e.closeOnce.Do(func() { e.recorder.Close() })
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) token(t *testing.T, username, role string) string {
	t.Helper()
	token, err := e.tokens.Generate(username, role)
	require.NoError(t, err)
	return token
}

// newJSONRequest 构造 JSON 请求，token 为空时不带 Authorization 头
func newJSONRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
