package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	platformerrors "github.com/arth-1/socialpost/internal/platform/errors"
)

func newTestLoader(t *testing.T, content string, env map[string]string) *Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".config.yaml")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
	}
	loader := NewLoader().WithDotEnv(false).WithPaths(path)
	loader.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return loader
}

func TestLoader_Load(t *testing.T) {
	loader := newTestLoader(t, `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
instagram:
  username: "yaml_user"
  request_timeout: 5s
history:
  limit: 3
`, nil)

	res, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if cfg.Server.IP != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Instagram.Username != "yaml_user" {
		t.Errorf("expected yaml username, got %q", cfg.Instagram.Username)
	}
	if cfg.Instagram.RequestTimeout != 5*time.Second {
		t.Errorf("expected request timeout 5s, got %v", cfg.Instagram.RequestTimeout)
	}
	if cfg.Instagram.PublishTimeout != 2*time.Minute {
		t.Errorf("default publish timeout lost: %v", cfg.Instagram.PublishTimeout)
	}
	if cfg.Compression.MaxDimension != 1024 || cfg.Compression.DefaultMaxSizeKB != 1000 {
		t.Errorf("compression defaults lost: %+v", cfg.Compression)
	}
	if cfg.History.Limit != 3 {
		t.Errorf("expected history limit 3, got %d", cfg.History.Limit)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	res, err := newTestLoader(t, "", nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != "defaults" {
		t.Fatalf("expected defaults path, got %q", res.Path)
	}
	if len(res.Config.TopPrompts) != 5 {
		t.Fatalf("expected 5 default prompts, got %d", len(res.Config.TopPrompts))
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	loader := newTestLoader(t, `
instagram:
  username: "yaml_user"
  password: "yaml_pass"
`, map[string]string{
		EnvInstagramUsername: "env_user",
		EnvInstagramPassword: "env_pass",
		EnvOpenAIKey:         "sk-test",
		EnvPort:              "7000",
	})

	res, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := res.Config
	if cfg.Instagram.Username != "env_user" || cfg.Instagram.Password != "env_pass" {
		t.Errorf("env credentials not applied: %+v", cfg.Instagram)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.LLM["OpenAILLM"].APIKey != "sk-test" || cfg.ImageGen["OpenAIImage"].APIKey != "sk-test" {
		t.Errorf("openai key not propagated: %+v %+v", cfg.LLM, cfg.ImageGen)
	}
}

func TestLoader_BlankEnvIgnored(t *testing.T) {
	loader := newTestLoader(t, "instagram:\n  username: keep\n", map[string]string{EnvInstagramUsername: "   "})
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Instagram.Username != "keep" {
		t.Fatalf("blank env overrode username: %q", res.Config.Instagram.Username)
	}
}

func TestLoader_InvalidPortEnv(t *testing.T) {
	_, err := newTestLoader(t, "", map[string]string{EnvPort: "abc"}).Load()
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "quality floor above start", mutate: func(c *Config) { c.Compression.MinQuality = 0.95 }, wantErr: true},
		{name: "zero step", mutate: func(c *Config) { c.Compression.QualityStep = 0 }, wantErr: true},
		{name: "unknown history driver", mutate: func(c *Config) { c.History.Driver = "mongo" }, wantErr: true},
		{name: "sqlite history without storage", mutate: func(c *Config) {
			c.History.Driver = "sqlite"
			c.Storage.Enabled = false
		}, wantErr: true},
		{name: "negative audit retention", mutate: func(c *Config) { c.Storage.AuditRetention = -time.Hour }, wantErr: true},
		{name: "auth without token", mutate: func(c *Config) {
			c.Server.Auth.Enabled = true
			c.Server.Token = ""
		}, wantErr: true},
		{name: "zero publish timeout", mutate: func(c *Config) { c.Instagram.PublishTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
