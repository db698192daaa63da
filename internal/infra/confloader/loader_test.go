package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr    string `koanf:"addr"`
			Enabled bool   `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Storage struct {
		DataDir string `koanf:"data_dir"`
	} `koanf:"storage"`
	Auth struct {
		SigningKey string        `koanf:"signing_key"`
		AccountTTL time.Duration `koanf:"account_token_ttl"`
	} `koanf:"auth"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
		WithEnvAlias("JWT_KEY", "auth.signing_key"),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
	if l.aliases["JWT_KEY"] != "auth.signing_key" {
		t.Errorf("aliases = %v", l.aliases)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: "0.0.0.0:8080"
    enabled: true
auth:
  account_token_ttl: 12h
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "0.0.0.0:8080" || !cfg.Server.HTTP.Enabled {
		t.Errorf("server.http = %+v", cfg.Server.HTTP)
	}
	if cfg.Auth.AccountTTL != 12*time.Hour {
		t.Errorf("account_token_ttl = %v, want 12h", cfg.Auth.AccountTTL)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	if err := NewLoader().LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
	if err := NewLoader().LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_LoadEnv_NestingSeparator(t *testing.T) {
	t.Setenv("BLOOMBUDDY_SERVER__HTTP__ADDR", "127.0.0.1:9090")
	t.Setenv("BLOOMBUDDY_STORAGE__DATA_DIR", "/var/lib/bloombuddy")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:9090" {
		t.Errorf("server.http.addr = %q", cfg.Server.HTTP.Addr)
	}
	if cfg.Storage.DataDir != "/var/lib/bloombuddy" {
		t.Errorf("storage.data_dir = %q, single underscores must stay in the key", cfg.Storage.DataDir)
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: "from-file:8080"
storage:
  data_dir: "/from/file"
`)
	t.Setenv("BLOOMBUDDY_SERVER__HTTP__ADDR", "from-env:8080")

	var cfg testConfig
	cfg.Auth.SigningKey = "default-key"
	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"storage.data_dir": "/from/flag"}),
	)
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "from-env:8080" {
		t.Errorf("addr = %q, env should override file", cfg.Server.HTTP.Addr)
	}
	if cfg.Storage.DataDir != "/from/flag" {
		t.Errorf("data_dir = %q, overrides should win", cfg.Storage.DataDir)
	}
	if cfg.Auth.SigningKey != "default-key" {
		t.Errorf("unset key lost its default: %q", cfg.Auth.SigningKey)
	}
}

func TestLoader_EnvAlias(t *testing.T) {
	t.Run("alias used as fallback", func(t *testing.T) {
		t.Setenv("JWT_KEY", "legacy-key")

		var cfg testConfig
		if err := NewLoader(WithEnvAlias("JWT_KEY", "auth.signing_key")).Load(&cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.SigningKey != "legacy-key" {
			t.Errorf("signing_key = %q, want legacy-key", cfg.Auth.SigningKey)
		}
	})

	t.Run("prefixed variable wins", func(t *testing.T) {
		t.Setenv("JWT_KEY", "legacy-key")
		t.Setenv("BLOOMBUDDY_AUTH__SIGNING_KEY", "new-key")

		var cfg testConfig
		if err := NewLoader(WithEnvAlias("JWT_KEY", "auth.signing_key")).Load(&cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.SigningKey != "new-key" {
			t.Errorf("signing_key = %q, want new-key", cfg.Auth.SigningKey)
		}
	})
}

func TestLoader_DotEnv(t *testing.T) {
	path := writeFile(t, ".env", "BLOOMBUDDY_STORAGE__DATA_DIR=/from/dotenv\nBLOOMBUDDY_SERVER__HTTP__ADDR=dotenv:1\n")
	t.Setenv("BLOOMBUDDY_SERVER__HTTP__ADDR", "env:1")
	// godotenv writes into the process environment.
	t.Cleanup(func() { os.Unsetenv("BLOOMBUDDY_STORAGE__DATA_DIR") })

	var cfg testConfig
	if err := NewLoader(WithDotEnv(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.DataDir != "/from/dotenv" {
		t.Errorf("data_dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.HTTP.Addr != "env:1" {
		t.Errorf("addr = %q, existing variables must win over .env", cfg.Server.HTTP.Addr)
	}

	if err := NewLoader(WithDotEnv(filepath.Join(t.TempDir(), "missing.env"))).Load(&cfg); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"server.http.addr": "localhost:3000"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if addr := l.GetString("server.http.addr"); addr != "localhost:3000" {
		t.Errorf("server.http.addr = %q", addr)
	}
	if !l.Exists("server.http") {
		t.Error("dotted keys should be nested")
	}
}
