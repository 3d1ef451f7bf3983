package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gomodule/redigo/redis"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkhub-go/internal/cache"
	"linkhub-go/internal/handler"
	"linkhub-go/internal/i18n"
	"linkhub-go/internal/jwt"
	"linkhub-go/internal/middleware"
	"linkhub-go/internal/repository"
	"linkhub-go/internal/service"
	"linkhub-go/pkg/logging"
)

const (
	serviceName    = "linkhub"
	serviceVersion = "1.0.0"
)

func initConfig() {
	wd, _ := os.Getwd()
	log.Printf("Loading config from: %s/config.yaml", wd)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("db.driver", "mysql")
	viper.SetDefault("cache.link_ttl_hours", 24)
	viper.SetDefault("auth.token_ttl_hours", 24)
	viper.SetDefault("visits.workers", 2)
	viper.SetDefault("visits.queue_size", 256)
	viper.SetDefault("clicks.max_concurrent", 64)
	viper.SetDefault("ratelimit.api.rps", 50)
	viper.SetDefault("ratelimit.api.burst", 100)
	viper.SetDefault("ratelimit.auth.rps", 5)
	viper.SetDefault("ratelimit.auth.burst", 10)
	viper.SetDefault("ratelimit.redirect.rps", 100)
	viper.SetDefault("ratelimit.redirect.burst", 200)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
}

func startServer(r *gin.Engine, jobs *cron.Cron, recorder *service.VisitRecorder, redisPool *redis.Pool) {
	srv := &http.Server{
		Addr:    viper.GetString("server.addr"),
		Handler: r,
	}

	// 启动服务器
	go func() {
		logging.Logger.Info("Server is running on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 先停新流量，再等定时任务收尾、排空访问记录队列，最后关外部连接
	<-jobs.Stop().Done()
	recorder.Close()

	if redisPool != nil {
		if err := redisPool.Close(); err != nil {
			logging.Logger.Warn("Redis pool close failed", zap.Error(err))
		}
	}

	logging.Logger.Info("Server exiting")
}

func main() {
	createUser := flag.Bool("create-user", false, "interactively create a user, then exit")
	createLink := flag.Bool("create-link", false, "interactively create a short link, then exit")
	flag.Parse()

	initConfig()
	logging.InitLoggerFromConfig()
	logging.Logger.Info("Application started")

	db, err := repository.InitDB(repository.DBConfig{
		Driver: viper.GetString("db.driver"),
		DSN:    viper.GetString("db.dsn"),
	}, logging.Logger, logging.AtomicLevel)
	if err != nil {
		logging.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	bundle, err := i18n.InitI18n([]string{
		"./i18n/en.toml",
		"./i18n/zh.toml",
	}, "en")
	if err != nil {
		logging.Logger.Fatal("Failed to load i18n bundles", zap.Error(err))
	}

	secret := viper.GetString("auth.jwt_secret")
	if secret == "" {
		logging.Logger.Fatal("auth.jwt_secret is required")
	}
	tokens := jwt.NewManager(secret, time.Duration(viper.GetInt("auth.token_ttl_hours"))*time.Hour)

	// Redis 未配置时退化为进程内缓存，单实例部署够用
	var redisPool *redis.Pool
	var linkCache cache.LinkCache
	if addr := viper.GetString("redis.addr"); addr != "" {
		redisPool = repository.NewRedisPool(repository.RedisConfig{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
		}, logging.Logger)
		linkCache = cache.NewRedisLinkCache(redisPool, logging.Logger)
	} else {
		logging.Logger.Warn("redis.addr not configured, using in-memory link cache")
		linkCache = cache.NewMemoryLinkCache()
	}

	linkRepo := repository.NewLinkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	userRepo := repository.NewUserRepository(db)
	statRepo := repository.NewDailyVisitStatRepository(db)

	linkTTL := time.Duration(viper.GetInt("cache.link_ttl_hours")) * time.Hour
	linkSvc := service.NewShortLinkService(linkRepo, linkCache, logging.Logger, linkTTL, viper.GetInt("clicks.max_concurrent"))
	visitSvc := service.NewVisitService(visitRepo, linkRepo, statRepo, logging.Logger)
	authSvc := service.NewAuthService(userRepo, tokens, logging.Logger)
	rollupSvc := service.NewRollupService(visitRepo, statRepo, logging.Logger)

	// 控制台命令走完即退出，不启动 HTTP 服务
	if *createUser {
		runCreateUser(authSvc, bundle)
		return
	}
	if *createLink {
		runCreateLink(linkSvc, bundle)
		return
	}

	recorder := service.NewVisitRecorder(visitSvc,
		viper.GetInt("visits.workers"),
		viper.GetInt("visits.queue_size"),
		logging.Logger,
	)

	baseURL := strings.TrimSuffix(viper.GetString("server.base_url"), "/")
	authHandler := handler.NewAuthHandler(authSvc, logging.Logger)
	linkHandler := handler.NewShortLinkHandler(linkSvc, baseURL, logging.Logger)
	visitHandler := handler.NewVisitHandler(visitSvc, baseURL, logging.Logger)
	redirectHandler := handler.NewRedirectHandler(linkSvc, recorder, logging.Logger)
	healthHandler := handler.NewHealthHandler(serviceName, serviceVersion)

	apiLimiter := middleware.NewRateLimiter(rate.Limit(viper.GetFloat64("ratelimit.api.rps")), viper.GetInt("ratelimit.api.burst"))
	authLimiter := middleware.NewRateLimiter(rate.Limit(viper.GetFloat64("ratelimit.auth.rps")), viper.GetInt("ratelimit.auth.burst"))
	redirectLimiter := middleware.NewRateLimiter(rate.Limit(viper.GetFloat64("ratelimit.redirect.rps")), viper.GetInt("ratelimit.redirect.burst"))

	r := gin.New()
	r.Use(gin.Recovery())

	// 注册全局错误中间件
	r.Use(middleware.GlobalErrorMiddleware())
	r.Use(middleware.ZapGinLogger(logging.Logger))
	r.Use(middleware.CorsMiddleware())
	// 使用 i18n 中间件
	r.Use(middleware.I18nMiddleware(bundle))

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/login", authLimiter.LimitMiddleware(), authHandler.Login)
			auth.GET("/me", middleware.JWTAuthMiddleware(tokens), authHandler.Me)
		}

		links := api.Group("/shortlinks", middleware.JWTAuthMiddleware(tokens), apiLimiter.LimitMiddleware())
		{
			links.POST("", linkHandler.Create)
			links.GET("", linkHandler.List)
			links.GET("/all", middleware.AdminOnlyMiddleware(), linkHandler.ListAll)
			links.GET("/stats", linkHandler.Stats)
			links.GET("/stats/all", middleware.AdminOnlyMiddleware(), linkHandler.StatsAll)
			links.GET("/:slug", linkHandler.Get)
			links.DELETE("/:slug", linkHandler.Delete)
			links.GET("/:slug/qrcode", linkHandler.QRCode)
		}

		visits := api.Group("/visits", middleware.JWTAuthMiddleware(tokens), apiLimiter.LimitMiddleware())
		{
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
		}
	}

	// 根路径短码跳转，非 /api 的单段 GET 都落在这里
	r.GET("/:slug", redirectLimiter.LimitMiddleware(), redirectHandler.Redirect)

	jobs := cron.New()
	// 每小时聚合一次访问明细，聚合是幂等的，跑勤一点无妨
	if _, err := jobs.AddFunc("@hourly", func() {
		if err := rollupSvc.Run(context.Background()); err != nil {
			logging.Logger.Error("Scheduled visit rollup failed", zap.Error(err))
		}
	}); err != nil {
		logging.Logger.Fatal("Failed to schedule rollup job", zap.Error(err))
	}
	jobs.Start()

	startServer(r, jobs, recorder, redisPool)
}
