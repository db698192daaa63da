// Package domain defines the core domain models for BloomBuddy.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Account: owner identity holding sensors and devices
//   - Sensor: telemetry producer with its latest reading
//   - Device: push notification target
//   - Reading: telemetry payload parsing
//   - Identity: verified token claims
//   - Payload: notification payloads
//   - Errors: domain-specific error definitions
package domain
