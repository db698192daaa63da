package config

import "time"

// ServerConfig is the root configuration for bloombuddy-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Auth    AuthSection    `koanf:"auth"`
	Push    PushSection    `koanf:"push"`
	History HistorySection `koanf:"history"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	HTTP      HTTPConfig      `koanf:"http"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight
	// notification fan-outs.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	TLSCertFile  string        `koanf:"tls_cert_file"`
	TLSKeyFile   string        `koanf:"tls_key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`

	// RequestsPerSecond and Burst apply to every route.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// AuthRequestsPerSecond and AuthBurst additionally apply to the
	// credential exchange routes (login, sensor pairing).
	AuthRequestsPerSecond float64 `koanf:"auth_requests_per_second"`
	AuthBurst             int     `koanf:"auth_burst"`
}

// StorageSection selects and configures the record store.
type StorageSection struct {
	// Driver is "badger" or "postgres".
	Driver string `koanf:"driver"`

	DataDir    string        `koanf:"data_dir"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`

	Postgres PostgresConfig `koanf:"postgres"`
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// AuthSection configures credential exchange.
type AuthSection struct {
	// SigningKey is the HS256 secret for bearer tokens. The legacy JWT_KEY
	// variable is read when nothing else sets it.
	SigningKey string `koanf:"signing_key"`

	AccountTokenTTL time.Duration `koanf:"account_token_ttl"`
	SensorTokenTTL  time.Duration `koanf:"sensor_token_ttl"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
}

// PushSection configures notification delivery.
type PushSection struct {
	// Driver is "sns", "log" or "none".
	Driver string `koanf:"driver"`

	Region          string `koanf:"region"`
	APNSPlatformARN string `koanf:"apns_platform_arn"`
	FCMPlatformARN  string `koanf:"fcm_platform_arn"`
	Sandbox         bool   `koanf:"sandbox"`
	Topic           string `koanf:"topic"`

	ExpiresIn   time.Duration `koanf:"expires_in"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// HistorySection configures the InfluxDB reading history.
type HistorySection struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Token         string        `koanf:"token"`
	Org           string        `koanf:"org"`
	Bucket        string        `koanf:"bucket"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
