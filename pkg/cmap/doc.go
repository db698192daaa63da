// Package cmap provides a generic map split into independently locked shards.
//
// The HTTP rate limiter keys per-client token buckets by address and the SNS
// transport caches platform endpoint ARNs by device token; both are read on
// every request from many goroutines.
package cmap
