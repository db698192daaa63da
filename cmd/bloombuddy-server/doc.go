// Package main provides the entry point for bloombuddy-server.
//
// The server exposes the BloomBuddy HTTP API: account and sensor
// credential exchange, telemetry ingestion, sensor and device management,
// and push notification fan-out to registered devices.
//
// Usage:
//
//	bloombuddy-server [flags]
//	bloombuddy-server -config /etc/bloombuddy/server.yaml
//
// Configuration is read from defaults, the optional YAML file, a .env file
// and BLOOMBUDDY_* environment variables, in that order. JWT_KEY is
// accepted as the signing key when auth.signing_key is not set otherwise.
package main
