// Package store persists players, cooldowns and the other domain entities
// with gorm over SQLite or PostgreSQL.
package store

import (
	"database/sql"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Store is the persistence boundary used by every other package.
type Store struct{ db *gorm.DB }

func New(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Open connects with the named driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA synchronous=NORMAL;")
		db.Exec("PRAGMA busy_timeout=5000;")
	case "postgres":
		sqlDB, oerr := sql.Open("postgres", dsn)
		if oerr != nil {
			return nil, fmt.Errorf("open postgres: %w", oerr)
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Server{},
		&domain.JoinCode{},
		&domain.Channel{},
		&domain.Player{},
		&domain.CooldownRecord{},
		&domain.GuildRaid{},
		&domain.Event{},
		&domain.Sentinel{},
		&domain.GambleRecord{},
		&domain.HuntRecord{},
	)
}

// Ping checks database connectivity.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
