package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Auth.SigningKey != "" {
		sanitized.Auth.SigningKey = maskSecret(sanitized.Auth.SigningKey)
	}
	if sanitized.Storage.Postgres.DSN != "" {
		sanitized.Storage.Postgres.DSN = maskDSN(sanitized.Storage.Postgres.DSN)
	}
	if sanitized.History.Token != "" {
		sanitized.History.Token = maskSecret(sanitized.History.Token)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskDSN hides the password of a URL-style DSN. Key/value DSNs are
// masked entirely since their password position is not fixed.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "****"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
