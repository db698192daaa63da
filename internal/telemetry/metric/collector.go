package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EntityCounts is a snapshot of stored record counts.
type EntityCounts struct {
	Accounts int
	Sensors  int
	Devices  int
}

// CountSource reports how many records the store holds.
type CountSource interface {
	Counts(ctx context.Context) (EntityCounts, error)
}

// Collector exports stored entity counts at scrape time.
type Collector struct {
	source  CountSource
	timeout time.Duration
	desc    *prometheus.Desc
}

// NewCollector creates a collector reading counts from source.
func NewCollector(source CountSource) *Collector {
	return &Collector{
		source:  source,
		timeout: 5 * time.Second,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "stored_entities"),
			"Number of stored records by kind",
			[]string{"kind"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.source.Counts(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts.Accounts), "account")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts.Sensors), "sensor")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts.Devices), "device")
}
