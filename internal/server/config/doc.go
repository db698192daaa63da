// Package config defines the bloombuddy-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - load.go: Layered loading through internal/infra/confloader
//   - verify.go: Validation before startup
//   - sanitize.go: Masking of secrets for logging
package config
