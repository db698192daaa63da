// Package logger is the structured logger of bloombuddy-server.
//
// Records go through two slog handler layers: one copies the request and
// account ids from the logging context, the other masks credentials
// (passwords, signing keys, bearer headers, JWTs, DSNs) before output.
package logger
