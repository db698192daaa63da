package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store closed")

// BadgerStore implements service.Store on top of Badger v3.
//
// Conflict detection is always on: a transaction whose reads were
// overwritten by a concurrent commit fails with badger.ErrConflict and is
// re-run from scratch, up to Config.MaxTxnRetries times.
type BadgerStore struct {
	db         *badger.DB
	cfg        Config
	logger     *slog.Logger
	maxRetries int

	closed atomic.Bool

	// Metrics (internal counters)
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64
	retries    atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsConflicts    prometheus.Counter

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

var (
	_ service.Store      = (*BadgerStore)(nil)
	_ metric.CountSource = (*BadgerStore)(nil)
)

// OpenBadger opens (or creates) a Badger backed store.
func OpenBadger(cfg Config, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.DetectConflicts = true

	badgerCfg := cfg.Badger
	if badgerCfg.CacheSize > 0 {
		opts.BlockCacheSize = badgerCfg.CacheSize
	}
	if badgerCfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = badgerCfg.ValueLogFileSize
	}
	if badgerCfg.NumMemtables > 0 {
		opts.NumMemtables = badgerCfg.NumMemtables
	}
	opts.SyncWrites = badgerCfg.SyncWrites && !cfg.InMemory

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	maxRetries := cfg.MaxTxnRetries
	if maxRetries <= 0 {
		maxRetries = DefaultConfig("").MaxTxnRetries
	}

	s := &BadgerStore{
		db:         db,
		cfg:        cfg,
		logger:     logger,
		maxRetries: maxRetries,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if cfg.InMemory {
		// No value log to collect.
		close(s.doneCh)
	} else {
		go s.gcLoop()
	}

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", badgerCfg.GCInterval)

	return s, nil
}

// View runs fn in a read-only transaction.
func (s *BadgerStore) View(ctx context.Context, fn func(tx service.Tx) error) error {
	if s.closed.Load() {
		return domain.ErrStorage.WithCause(ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
	return wrapStorageErr(err)
}

// Update runs fn in a read-write transaction, re-running it when the
// commit loses a conflict.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx service.Tx) error) error {
	if s.closed.Load() {
		return domain.ErrStorage.WithCause(ErrClosed)
	}

	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return wrapStorageErr(err)
		}

		s.retries.Add(1)
		if s.metricsConflicts != nil {
			s.metricsConflicts.Inc()
		}
	}

	s.logger.Warn("transaction retries exhausted", "attempts", s.maxRetries)
	return domain.ErrStorage.WithDetails("too much contention").WithCause(err)
}

// Counts returns the number of stored records per kind.
func (s *BadgerStore) Counts(ctx context.Context) (metric.EntityCounts, error) {
	var counts metric.EntityCounts
	if s.closed.Load() {
		return counts, ErrClosed
	}

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if counts.Accounts, err = countPrefix(txn, prefixAccount); err != nil {
			return err
		}
		if counts.Sensors, err = countPrefix(txn, prefixSensor); err != nil {
			return err
		}
		counts.Devices, err = countPrefix(txn, prefixDevice)
		return err
	})
	return counts, err
}

// Retries returns how many transactions were re-run after a conflict.
func (s *BadgerStore) Retries() uint64 {
	return s.retries.Load()
}

// GC runs value log garbage collection until nothing is left to rewrite.
// It returns the number of rewritten value log files.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	if s.cfg.InMemory {
		return 0, nil
	}
	startTime := time.Now()

	threshold := s.cfg.Badger.GCThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	runs := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(threshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(uint64(runs))

	s.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats() Stats {
	lsm, vlog := s.db.Size()
	return Stats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		TotalSize:    uint64(lsm + vlog),
		LastGCTime:   s.lastGCTime.Load(),
		GCRuns:       s.gcRuns.Load(),
	}
}

// Close stops background work and closes the database.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("closing badger store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger metrics with Prometheus.
//
// This should be called once during initialization.
// Returns the store for method chaining.
func (s *BadgerStore) RegisterMetrics(registry *prometheus.Registry) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bloombuddy",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bloombuddy",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bloombuddy",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	s.metricsConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bloombuddy",
		Subsystem: "badger",
		Name:      "txn_conflicts_total",
		Help:      "Transactions re-run after a write conflict",
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsConflicts,
	)

	s.updateMetrics()
	go s.metricsUpdateLoop()

	return s
}

func (s *BadgerStore) updateMetrics() {
	stats := s.Stats()
	s.metricsLSMSize.Set(float64(stats.LSMSize))
	s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

// metricsUpdateLoop periodically refreshes the size gauges.
func (s *BadgerStore) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval := s.cfg.Badger.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// wrapStorageErr passes domain errors through and wraps everything else.
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

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
