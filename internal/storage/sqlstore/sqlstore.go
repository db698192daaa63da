// Package sqlstore implements service.Store on PostgreSQL through GORM.
//
// Every read-write transaction takes a row lock (SELECT ... FOR UPDATE) on
// each account it loads, so ownership changes of one account are applied
// one after another while different accounts proceed in parallel.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// Config configures the PostgreSQL store.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// MaxOpenConns caps the connection pool.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns caps idle pooled connections.
	// Default: 5
	MaxIdleConns int

	// ConnMaxLifetime recycles pooled connections.
	// Default: 30m
	ConnMaxLifetime time.Duration

	// SlowThreshold logs queries slower than this at warn level.
	// Default: 200ms
	SlowThreshold time.Duration
}

// Store implements service.Store.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ service.Store      = (*Store)(nil)
	_ metric.CountSource = (*Store)(nil)
)

// Open connects to PostgreSQL and migrates the schema.
func Open(cfg Config, log *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 200 * time.Millisecond
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(&gormWriter{logger: log}, logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 10))
	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.AutoMigrate(&accountRow{}, &sensorRow{}, &deviceRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	log.Info("postgres store opened")
	return &Store{db: db, logger: log}, nil
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx service.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&sqlTx{db: gtx})
	}, &sql.TxOptions{ReadOnly: true})
	return wrapStorageErr(err)
}

// Update runs fn in a read-write transaction. Accounts read through the
// transaction are locked until it ends.
func (s *Store) Update(ctx context.Context, fn func(tx service.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&sqlTx{db: gtx, lock: true})
	})
	return wrapStorageErr(err)
}

// Counts returns the number of stored records per kind.
func (s *Store) Counts(ctx context.Context) (metric.EntityCounts, error) {
	var accounts, sensors, devices int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&accountRow{}).Count(&accounts).Error; err != nil {
		return metric.EntityCounts{}, err
	}
	if err := db.Model(&sensorRow{}).Count(&sensors).Error; err != nil {
		return metric.EntityCounts{}, err
	}
	if err := db.Model(&deviceRow{}).Count(&devices).Error; err != nil {
		return metric.EntityCounts{}, err
	}
	return metric.EntityCounts{
		Accounts: int(accounts),
		Sensors:  int(sensors),
		Devices:  int(devices),
	}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.logger.Info("closing postgres store")
	return sqlDB.Close()
}

func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrStorage.WithCause(err)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// gormWriter adapts slog.Logger to GORM's logger.Writer.
type gormWriter struct {
	logger *slog.Logger
}

func (w *gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}
