package logger

import (
	"log/slog"
	"strings"
)

const (
	jwtPrefix    = "eyJ"
	bearerPrefix = "Bearer "
	redacted     = "***REDACTED***"
)

// Attribute keys containing one of these hold credentials.
var sensitiveKeys = []string{"password", "secret", "token", "key", "credential", "auth", "bearer", "dsn"}

// redact masks credential-shaped string values and values under sensitive
// keys. A JWT is recognised by shape under any key and keeps a short hint.
func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		switch {
		case isJWT(v):
			return slog.String(a.Key, maskJWT(v))
		case strings.HasPrefix(v, bearerPrefix):
			return slog.String(a.Key, bearerPrefix+redacted)
		case v != "" && sensitiveKey(a.Key):
			return slog.String(a.Key, redacted)
		}
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

func isJWT(v string) bool {
	return strings.HasPrefix(v, jwtPrefix) && strings.Count(v, ".") == 2
}

// maskJWT keeps the prefix plus three characters from each end.
func maskJWT(v string) string {
	body := v[len(jwtPrefix):]
	if len(body) <= 6 {
		return jwtPrefix + "***"
	}
	return jwtPrefix + body[:3] + "..." + body[len(body)-3:]
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
