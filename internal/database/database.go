// Package database opens the sqlite store behind the repositories.
package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hypd/urlshortener/internal/models"
)

// Options controls how the sqlite database is opened.
type Options struct {
	Name          string // file name, or ":memory:"
	MaxOpenConns  int
	BusyTimeoutMS int
}

// Open connects to the sqlite database and applies the pragmas the
// repositories rely on (foreign keys, busy timeout, WAL).
// All timestamps are written in UTC so that SQL comparisons on them are ordered.
func Open(opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(opts)), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	return db, nil
}

// Migrate creates or updates the links, analytics and product_metadata tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Link{}, &models.Analytics{}, &models.ProductMetadata{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(opts Options) string {
	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	params := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy),
		"_time_format=sqlite",
	}
	if opts.Name != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(opts.Name, "?") {
		sep = "&"
	}
	return opts.Name + sep + strings.Join(params, "&")
}
