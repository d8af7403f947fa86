package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voice-tutor-go/pkg/log"
)

// DB 为空表示文档存储未配置，仓储层会退化为临时模式。
var DB *gorm.DB

// ErrUnsupportedDriver is returned for an unknown database.driver value.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open 按驱动名打开一个 GORM 连接。driver 为空时返回 (nil, nil)。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "":
		return nil, nil
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		if dsn != ":memory:" && dsn != "" {
			if dir := filepath.Dir(dsn); dir != "." {
				_ = os.MkdirAll(dir, os.ModePerm)
			}
		}
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// sqlite 只允许单写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

// InitDB 初始化全局数据库连接。连接失败只记录日志，服务以临时模式继续运行。
func InitDB(driver, dsn string) {
	db, err := Open(driver, dsn)
	if err != nil {
		log.Error("[Database] 数据库连接失败，roadmap 将不会被持久化", err)
		return
	}
	if db == nil {
		log.Warnf("[Database] 未配置 database.driver，roadmap 存储处于临时模式")
		return
	}
	DB = db
	log.Infof("[Database] %s database connected successfully", driver)
}
