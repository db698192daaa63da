package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "0.0.0.0:8080"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultStorageDriver = "badger"
	DefaultDataDir       = "/var/lib/bloombuddy/data"
	DefaultGCInterval    = 10 * time.Minute

	DefaultAccountTokenTTL = 24 * time.Hour
	DefaultSensorTokenTTL  = 30 * 24 * time.Hour
	DefaultBcryptCost      = 12

	DefaultPushDriver  = "log"
	DefaultPushTopic   = "de.touchthegrass.BloomBuddy"
	DefaultPushExpiry  = 48 * time.Hour
	DefaultPushTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			},
			RateLimit: RateLimitConfig{
				Enabled:               true,
				RequestsPerSecond:     20,
				Burst:                 40,
				AuthRequestsPerSecond: 1,
				AuthBurst:             5,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Driver:     DefaultStorageDriver,
			DataDir:    DefaultDataDir,
			GCInterval: DefaultGCInterval,
			SyncWrites: true,
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Auth: AuthSection{
			AccountTokenTTL: DefaultAccountTokenTTL,
			SensorTokenTTL:  DefaultSensorTokenTTL,
			BcryptCost:      DefaultBcryptCost,
		},
		Push: PushSection{
			Driver:      DefaultPushDriver,
			Topic:       DefaultPushTopic,
			ExpiresIn:   DefaultPushExpiry,
			Timeout:     DefaultPushTimeout,
			Concurrency: 8,
		},
		History: HistorySection{
			Bucket:        "readings",
			FlushInterval: time.Second,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
