package repository

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"linkhub-go/internal/model"
	"linkhub-go/pkg/logging"
)

// ErrNotFound 查无记录，由各仓储实现统一转换
var ErrNotFound = errors.New("record not found")

// DBConfig 数据库连接配置
type DBConfig struct {
	Driver string // mysql（默认）或 postgres
	DSN    string
}

// InitDB 建立数据库连接并自动迁移表结构
func InitDB(cfg DBConfig, logger *zap.Logger, atomicLogLevel zap.AtomicLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormLogger(logger, logging.ToGormLogLevel(atomicLogLevel.Level())),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.ShortLink{},
		&model.Visit{},
		&model.User{},
		&model.DailyVisitStat{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}
