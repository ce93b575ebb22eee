package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"recyclehub/server/internal/models"
	"recyclehub/server/internal/pricing"
)

// Database is the SQLite backed store for materials, pickups and market prices.
type Database struct {
	*Repository
	db *gorm.DB
}

// Repository holds the queries shared by Database and its transactions.
type Repository struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite allows a single writer; one connection serializes transactions.
	sqlDB.SetMaxOpenConns(1)

	return &Database{Repository: &Repository{db: db}, db: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// WithinTransaction runs fn in a single database transaction.
func (d *Database) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pricing.Tx) error) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Repository{db: tx})
	})
	return translate(err)
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// translate maps driver errors to model errors. A busy or locked database is
// reported as a concurrency conflict so pricing updates are retried.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrAlreadyExists
	}
	return err
}
