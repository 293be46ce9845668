package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "HOST", "ALLOWED_ORIGINS", "FRONTEND_URL", "FRONTEND_URL_2", "BACKEND_MODE", "BACKEND_URL", "LOCAL_STORE_QUOTA", "WORKSPACE_IDLE_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.BackendMode != ModeMemory || cfg.BackendURL != "http://localhost:8080" {
		t.Fatalf("unexpected backend settings %+v", cfg)
	}
	if cfg.LocalStoreQuota != 5*1024*1024 || cfg.WorkspaceIdle != 30*time.Minute {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadProductionHost(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HOST", "https://api.vibes.dev")
	t.Setenv("ALLOWED_ORIGINS", "https://app.vibes.dev, https://vibes.dev")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, ")
	cfg := Load()
	if len(cfg.TrustedProxies) != 1 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("trusted proxies = %v", cfg.TrustedProxies)
	}
	if cfg.AllowedHost != "api.vibes.dev" {
		t.Fatalf("allowed host = %q", cfg.AllowedHost)
	}
	if !containsOrigin(cfg.AllowedOrigins, "https://www.vibes.dev") || !containsOrigin(cfg.AllowedOrigins, "https://app.vibes.dev") {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "development",
			BackendMode: ModeSelfHosted,
			BackendURL:  "http://localhost:8080",
			PostgresURI: "postgres://localhost:5432/vibes",
			RedisURI:    "redis://localhost:6379/0",
			MongoURI:    "mongodb://localhost:27017",
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"ENV":          func(c *Config) { c.Environment = "qa" },
		"BACKEND_MODE": func(c *Config) { c.BackendMode = "supabase" },
		"POSTGRES_URI": func(c *Config) { c.PostgresURI = "mysql://localhost/vibes" },
		"REDIS_URI":    func(c *Config) { c.RedisURI = "" },
		"MONGODB_URI":  func(c *Config) { c.MongoURI = "mongodb://" },
	}
	for key, mutate := range cases {
		c := base()
		mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("%s: expected error naming the key, got %v", key, err)
		}
	}
}
