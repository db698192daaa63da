package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/history"
	"github.com/MiaKoring/BloomBuddyServer/internal/infra/buildinfo"
	"github.com/MiaKoring/BloomBuddyServer/internal/infra/confloader"
	"github.com/MiaKoring/BloomBuddyServer/internal/infra/shutdown"
	"github.com/MiaKoring/BloomBuddyServer/internal/push"
	"github.com/MiaKoring/BloomBuddyServer/internal/server/config"
	"github.com/MiaKoring/BloomBuddyServer/internal/server/httpserver"
	"github.com/MiaKoring/BloomBuddyServer/internal/storage"
	"github.com/MiaKoring/BloomBuddyServer/internal/storage/sqlstore"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// limiterSweepInterval is how often idle rate limit buckets are dropped.
const limiterSweepInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		dotEnvFile  = flag.String("env-file", ".env", "Path to .env file (ignored when missing)")
		addr        = flag.String("addr", "", "Override server.http.addr")
		logLevel    = flag.String("log-level", "", "Override log.level")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bloombuddy-server %s\n", buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *addr != "" {
		overrides["server.http.addr"] = *addr
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}

	cfg, err := config.Load(*configFile, *dotEnvFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := logger.Slog(log)

	info := buildinfo.Get()
	log.Info("starting bloombuddy-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, slogLogger)
	metrics := metric.NewRegistry()

	// Storage
	st, err := openStore(cfg, slogLogger, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	metrics.MustRegister(metric.NewCollector(st))
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return st.Close()
	})

	// Services
	tokens, err := service.NewTokenService([]byte(cfg.Auth.SigningKey), service.WithTokenMetrics(metrics))
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	transport, err := newTransport(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init push: %w", err)
	}
	var (
		guard    *service.Guard
		ingestor *service.Ingestor
		opts     = []service.IngestorOption{service.WithIngestMetrics(metrics)}
	)

	if cfg.History.Enabled {
		recorder, err := history.NewInfluxRecorder(history.Config{
			URL:           cfg.History.URL,
			Token:         cfg.History.Token,
			Org:           cfg.History.Org,
			Bucket:        cfg.History.Bucket,
			FlushInterval: cfg.History.FlushInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		opts = append(opts, service.WithHistory(recorder))
		shutdownHandler.OnShutdown("history", func(context.Context) error {
			recorder.Close()
			return nil
		})
	}

	if transport != nil {
		notifier := service.NewNotifier(st, transport, &service.NotifierConfig{
			ExpiresIn:   cfg.Push.ExpiresIn,
			Timeout:     cfg.Push.Timeout,
			Concurrency: cfg.Push.Concurrency,
		}, log, metrics)
		shutdownHandler.OnShutdown("notifier", notifier.Close)

		guard = service.NewGuard(st, tokens, notifier, metrics)
		ingestor = service.NewIngestor(st, notifier, opts...)
	} else {
		log.Warn("push notifications disabled")
		guard = service.NewGuard(st, tokens, nil, metrics)
		ingestor = service.NewIngestor(st, nil, opts...)
	}

	auth := service.NewAuthService(st, tokens, &service.AuthServiceConfig{
		AccountTokenTTL: cfg.Auth.AccountTokenTTL,
		SensorTokenTTL:  cfg.Auth.SensorTokenTTL,
		BcryptCost:      cfg.Auth.BcryptCost,
	}, metrics)

	// HTTP
	routerCfg := &httpserver.RouterConfig{
		Auth:     auth,
		Guard:    guard,
		Ingestor: ingestor,
		Ready:    readiness(st),
		Metrics:  metrics,
		Logger:   slogLogger,
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		routerCfg.RateLimit = httpserver.NewClientLimiter(rl.RequestsPerSecond, rl.Burst)
		routerCfg.AuthRateLimit = httpserver.NewClientLimiter(rl.AuthRequestsPerSecond, rl.AuthBurst)
		go routerCfg.RateLimit.Run(ctx, limiterSweepInterval)
		go routerCfg.AuthRateLimit.Run(ctx, limiterSweepInterval)
	}

	httpCfg := cfg.Server.HTTP
	srv := httpserver.New(httpserver.Options{
		Addr:         httpCfg.Addr,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}, httpserver.NewRouter(routerCfg))
	shutdownHandler.OnShutdown("http", srv.Shutdown)

	go func() {
		log.Info("HTTP server listening", "addr", httpCfg.Addr, "tls", httpCfg.TLSCertFile != "")

		var err error
		if httpCfg.TLSCertFile != "" {
			err = srv.ListenAndServeTLS(httpCfg.TLSCertFile, httpCfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if *configFile != "" {
		stop, err := watchLogLevel(*configFile, *dotEnvFile, overrides, slogLogger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("server started")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// store is what the server needs from a storage backend.
type store interface {
	service.Store
	metric.CountSource
	Close() error
}

func openStore(cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pg := cfg.Storage.Postgres
		s, err := sqlstore.Open(sqlstore.Config{
			DSN:             pg.DSN,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: pg.ConnMaxLifetime,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		sc := storage.DefaultConfig(cfg.Storage.DataDir)
		sc.InMemory = cfg.Storage.InMemory
		sc.Badger.SyncWrites = cfg.Storage.SyncWrites
		if cfg.Storage.GCInterval > 0 {
			sc.Badger.GCInterval = cfg.Storage.GCInterval
		}
		s, err := storage.OpenBadger(sc, log)
		if err != nil {
			return nil, err
		}
		return s.RegisterMetrics(metrics.Prometheus()), nil
	}
}

// newTransport returns nil when push is disabled.
func newTransport(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (service.Transport, error) {
	switch cfg.Push.Driver {
	case "sns":
		t, err := push.NewSNSTransport(ctx, push.SNSConfig{
			Region:          cfg.Push.Region,
			APNSPlatformARN: cfg.Push.APNSPlatformARN,
			FCMPlatformARN:  cfg.Push.FCMPlatformARN,
			Sandbox:         cfg.Push.Sandbox,
			Topic:           cfg.Push.Topic,
		}, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "log":
		return push.NewLogTransport(log), nil
	default:
		return nil, nil
	}
}

func readiness(st store) func(context.Context) error {
	if p, ok := st.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return func(ctx context.Context) error {
		_, err := st.Counts(ctx)
		return err
	}
}

// watchLogLevel applies log.level changes in the config file without a
// restart. Other settings need a restart.
func watchLogLevel(path, dotEnv string, overrides map[string]any, log *slog.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, dotEnv, overrides)
		if err == nil {
			err = config.Verify(cfg)
		}
		if err != nil {
			log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
