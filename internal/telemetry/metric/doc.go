// Package metric provides Prometheus metrics for BloomBuddy.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: Collector reporting stored entity counts
//
// Metrics include:
//
//   - Request counters and latency histograms
//   - Telemetry ingestion results
//   - Notification delivery results
//   - Issued tokens and authentication failures
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
