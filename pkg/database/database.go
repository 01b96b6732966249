package database

import (
	"fmt"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func GormOpen(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
}

// GormOpenWithPool opens the database and applies the connection pool limits.
func GormOpenWithPool(dsn string, pool PoolConfig) (*gorm.DB, error) {
	db, err := GormOpen(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

func RunMigrations(db *gorm.DB, entities ...interface{}) error {
	if err := db.AutoMigrate(entities...); err != nil {
		return err
	}
	return nil
}

// OwnedEntities lists the tables this module migrates. business_profiles is
// owned by the profile service and only read here.
func OwnedEntities() []interface{} {
	return []interface{}{
		&entities.ReviewData{},
		&entities.ReplyRecordData{},
		&entities.ReviewSourceData{},
		&entities.SyncLogData{},
	}
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
