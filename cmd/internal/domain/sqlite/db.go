package sqlite

import (
	"context"
	"fmt"
	"time"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultPath = "database.db"

type Config struct {
	Path  string
	Debug bool
}

// Init opens the database file and creates the tables that are missing.
// SQLite allows a single writer, so the pool is capped to one connection.
func Init(ctx context.Context, cfg Config) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", path, err)
	}

	if err = Migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the companies and upload_reports tables if absent.
// It never drops or rewrites existing data.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&entity.Company{}, &entity.UploadReport{})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
