// Package service provides domain services for BloomBuddy.
//
// Domain services contain the business rules and orchestrate operations
// on domain models. They define interfaces for storage and delivery
// dependencies, allowing for dependency injection and testability.
//
// This package contains:
//
//   - TokenService: signed bearer token issue and verification
//   - AuthService: account creation, password login, sensor pairing
//   - Guard: token resolution, sensor ownership, quota and device registry
//   - Ingestor: telemetry parsing and atomic reading updates
//   - Notifier: per-device notification fan-out
//
// Services are safe for concurrent use. Consistency between an account's
// sensor list and the sensor records relies on every mutation running
// inside a single Store.Update transaction.
package service
