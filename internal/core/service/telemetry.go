package service

import (
	"context"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// AccountDispatcher delivers a payload to every device of an account in
// the background.
type AccountDispatcher interface {
	DispatchAccount(ctx context.Context, accountID string, payload domain.Payload)
}

// HistoryRecorder keeps a time series of committed readings.
// Implementations must not block the caller.
type HistoryRecorder interface {
	Record(sensor *domain.Sensor)
}

// IngestResult is the outcome of a committed telemetry push.
type IngestResult struct {
	// Timestamp is the server time stored with the reading (Unix seconds).
	Timestamp int64

	// Value is the stored reading.
	Value float64
}

// Ack renders the plain-text acknowledgement sent back to the sensor.
func (r *IngestResult) Ack() string {
	return domain.FormatAck(r.Timestamp, r.Value)
}

// Ingestor accepts sensor telemetry.
type Ingestor struct {
	store    Store
	notifier AccountDispatcher
	history  HistoryRecorder
	metrics  *metric.Registry
	now      func() time.Time
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestClock replaces the wall clock used for reading timestamps.
func WithIngestClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) {
		i.now = now
	}
}

// WithHistory records every committed reading in h.
func WithHistory(h HistoryRecorder) IngestorOption {
	return func(i *Ingestor) {
		i.history = h
	}
}

// WithIngestMetrics counts ingestion results in m.
func WithIngestMetrics(m *metric.Registry) IngestorOption {
	return func(i *Ingestor) {
		i.metrics = m
	}
}

// NewIngestor creates a new Ingestor. notifier may be nil.
func NewIngestor(store Store, notifier AccountDispatcher, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest parses raw and stores it as the latest reading of sensorID.
//
// The reading, the battery level and the timestamp are written in one
// transaction. Background notification and history recording start only
// after the commit and never affect the result.
func (i *Ingestor) Ingest(ctx context.Context, accountID, sensorID, raw string) (*IngestResult, error) {
	// 1. Parse before touching storage
	reading, err := domain.ParseReading(raw)
	if err != nil {
		i.metrics.RecordIngest("malformed")
		return nil, err
	}

	// 2. Write reading, battery and timestamp together
	ts := i.now().Unix()
	var snapshot *domain.Sensor
	err = i.store.Update(ctx, func(tx Tx) error {
		_, s, err := ownedSensor(tx, accountID, sensorID)
		if err != nil {
			return err
		}
		s.RecordReading(reading.Value, reading.Battery, ts)
		if err := tx.PutSensor(s); err != nil {
			return err
		}
		snapshot = s
		return nil
	})
	if err != nil {
		if isLookupMiss(err) {
			// The sensor was deleted or re-owned after its token was issued.
			i.metrics.RecordIngest("unauthorized")
			return nil, domain.ErrUnauthorized.WithDetails("sensor is no longer linked")
		}
		i.metrics.RecordIngest("error")
		return nil, err
	}
	i.metrics.RecordIngest("ok")

	// 3. Fire-and-forget side effects
	if i.notifier != nil {
		i.notifier.DispatchAccount(ctx, snapshot.Owner, domain.NewBackgroundPayload(snapshot.Data()))
	}
	if i.history != nil {
		i.history.Record(snapshot.Clone())
	}

	return &IngestResult{Timestamp: ts, Value: reading.Value}, nil
}
