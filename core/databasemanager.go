package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "info":
		return LogLevelInfo
	default:
		return LogLevelWarn
	}
}

type Options struct {
	Path     string
	LogLevel LogLevel
}

// DatabaseManager owns the single embedded store. Every query runs while
// holding mu, so writes are totally ordered and a read-decide-write sequence
// inside one Exec cannot interleave with another.
type DatabaseManager struct {
	mu       sync.Mutex
	db       *gorm.DB
	path     string
	LogLevel LogLevel
}

// Open opens (or creates) the database file and creates the schema on first use.
func Open(ctx context.Context, opts Options) (*DatabaseManager, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dm := &DatabaseManager{path: opts.Path, LogLevel: opts.LogLevel}
	if err := dm.open(ctx); err != nil {
		return nil, err
	}
	return dm, nil
}

func (dm *DatabaseManager) open(ctx context.Context) error {
	if dir := filepath.Dir(dm.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dm.path), &gorm.Config{
		Logger:         dm.logger(),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", dm.path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get pool: %w", err)
	}
	// one connection; the mutex already serializes access
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	dm.db = db
	return nil
}

func (dm *DatabaseManager) logger() logger.Interface {
	// Map local LogLevel to GORM LogLevel
	gormLogLevel := logger.Warn
	switch dm.LogLevel {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	case LogLevelSilent:
		gormLogLevel = logger.Silent
	}

	return logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Path is the location of the live database file.
func (dm *DatabaseManager) Path() string {
	return dm.path
}

// Exec runs fn in a transaction while holding the store mutex. The
// transaction commits when fn returns nil.
func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return apperror.New(apperror.CodePersistence, "database is closed")
	}

	if err := dm.db.WithContext(ctx).Transaction(fn); err != nil {
		return MapError(err)
	}
	return nil
}

// WithFileLocked holds the store mutex while fn works on the database file.
// No transaction is open while fn runs.
func (dm *DatabaseManager) WithFileLocked(ctx context.Context, fn func(path string) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(dm.path)
}

// Replace copies src over the live database file and reopens the store.
func (dm *DatabaseManager) Replace(ctx context.Context, src string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.closeLocked(); err != nil {
		return err
	}

	if err := filesystem.CopyFile(src, dm.path); err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	for _, suffix := range []string{"-journal", "-wal", "-shm"} {
		os.Remove(dm.path + suffix)
	}

	return dm.open(ctx)
}

// Close closes the pool
func (dm *DatabaseManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.closeLocked()
}

func (dm *DatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	sqlDB, err := dm.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get pool: %w", err)
	}
	dm.db = nil
	return sqlDB.Close()
}
