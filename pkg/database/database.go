// Package database 负责建立数据库和 Redis 连接。
package database

import (
	"fmt"
	"time"

	"personal-site-go/internal/config"
	"personal-site-go/internal/model"
	"personal-site-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据配置的驱动打开数据库连接并配置连接池。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQL.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite 只允许单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infof("%s database connected successfully", cfg.Driver)
	return db, nil
}

// Migrate 自动迁移所有模型对应的表结构。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.AnonymousMessage{},
		&model.ContactMessage{},
		&model.Post{},
		&model.Photo{},
	); err != nil {
		return fmt.Errorf("database: auto-migrate: %w", err)
	}
	return nil
}
