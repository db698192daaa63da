// Package history writes committed sensor readings to InfluxDB.
//
// Writes are batched and sent in the background; a slow or unreachable
// InfluxDB never delays telemetry ingestion. Write failures are logged and
// the affected points dropped.
package history

import (
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
)

// Measurement is the InfluxDB measurement holding sensor readings.
const Measurement = "sensor_reading"

// Config configures the InfluxDB recorder.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// BatchSize is the number of points sent per write request.
	// Default: 500
	BatchSize uint

	// FlushInterval bounds how long a point waits in the buffer.
	// Default: 1s
	FlushInterval time.Duration
}

// InfluxRecorder implements service.HistoryRecorder.
type InfluxRecorder struct {
	client influxdb2.Client
	writer api.WriteAPI
	log    logger.Logger
	done   chan struct{}
}

var _ service.HistoryRecorder = (*InfluxRecorder)(nil)

// NewInfluxRecorder creates a recorder writing to cfg.Bucket.
func NewInfluxRecorder(cfg Config, log logger.Logger) (*InfluxRecorder, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("history: url, org and bucket are required")
	}
	if log == nil {
		log = logger.Default()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(cfg.BatchSize).
		SetFlushInterval(uint(cfg.FlushInterval / time.Millisecond)).
		SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	r := &InfluxRecorder{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:    log.With("component", "history"),
		done:   make(chan struct{}),
	}
	go r.drainErrors(r.writer.Errors())
	return r, nil
}

// Record queues the sensor's latest reading. Sensors without a reading are
// ignored.
func (r *InfluxRecorder) Record(sensor *domain.Sensor) {
	p := point(sensor)
	if p == nil {
		return
	}
	r.writer.WritePoint(p)
}

// Close flushes buffered points and closes the client.
func (r *InfluxRecorder) Close() {
	r.writer.Flush()
	r.client.Close()
	<-r.done
}

func (r *InfluxRecorder) drainErrors(errs <-chan error) {
	defer close(r.done)
	for err := range errs {
		r.log.Warn("history write failed", "error", err)
	}
}

func point(s *domain.Sensor) *write.Point {
	if !s.HasReading() {
		return nil
	}
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("account_id", s.Owner).
		AddTag("sensor_id", s.ID).
		AddTag("model", strconv.Itoa(s.Model.Code())).
		AddField("value", *s.Latest).
		SetTime(time.Unix(*s.Updated, 0))
	if s.Battery != nil {
		p.AddField("battery", *s.Battery)
	}
	return p
}
