// Package handler implements the BloomBuddy HTTP endpoints.
//
// JSON responses use the Response envelope. Telemetry pushes are answered
// with a plain-text acknowledgement ("<timestamp>:<value>") because sensors
// parse it directly.
package handler
