package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinSigningKeyLength is the shortest accepted HS256 signing key.
const MinSigningKeyLength = 32

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyAuth(&cfg.Auth); err != nil {
		return err
	}
	if err := verifyPush(&cfg.Push); err != nil {
		return err
	}
	if err := verifyHistory(&cfg.History); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 || cfg.RateLimit.Burst < 1 {
			return errors.New("server.rate_limit: requests_per_second and burst must be positive")
		}
		if cfg.RateLimit.AuthRequestsPerSecond <= 0 || cfg.RateLimit.AuthBurst < 1 {
			return errors.New("server.rate_limit: auth_requests_per_second and auth_burst must be positive")
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Driver {
	case "badger":
		if cfg.InMemory {
			return nil
		}
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported (badger, postgres)", cfg.Driver)
	}
	return nil
}

func verifyAuth(cfg *AuthSection) error {
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("auth.signing_key must be at least %d bytes", MinSigningKeyLength)
	}
	if cfg.AccountTokenTTL < time.Second || cfg.SensorTokenTTL < time.Second {
		return errors.New("auth: token ttls must be at least 1s")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func verifyPush(cfg *PushSection) error {
	switch cfg.Driver {
	case "none", "log":
	case "sns":
		if cfg.APNSPlatformARN == "" {
			return errors.New("push.apns_platform_arn is required for the sns driver")
		}
	default:
		return fmt.Errorf("push.driver %q is not supported (sns, log, none)", cfg.Driver)
	}
	if cfg.ExpiresIn <= 0 || cfg.Timeout <= 0 {
		return errors.New("push: expires_in and timeout must be positive")
	}
	if cfg.Concurrency < 1 {
		return errors.New("push.concurrency must be at least 1")
	}
	return nil
}

func verifyHistory(cfg *HistorySection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return errors.New("history: url, org and bucket are required when enabled")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Format)
	}
	return nil
}
