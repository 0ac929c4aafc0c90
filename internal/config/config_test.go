package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("ListenAddress = %q, want :8080", cfg.Server.ListenAddress)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Store.ResultTTL != 24*time.Hour {
		t.Errorf("ResultTTL = %v, want 24h", cfg.Store.ResultTTL)
	}
	if cfg.Audit.BiasThreshold != 0.8 {
		t.Errorf("BiasThreshold = %v, want 0.8", cfg.Audit.BiasThreshold)
	}
	if cfg.Audit.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v, want 0.5", cfg.Audit.SimilarityThreshold)
	}
	if cfg.Server.MaxBodyBytes != 4<<20 {
		t.Errorf("MaxBodyBytes = %d, want 4MiB", cfg.Server.MaxBodyBytes)
	}
	if cfg.Signing.Algorithm != "none" {
		t.Errorf("Signing.Algorithm = %q, want none", cfg.Signing.Algorithm)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  listen_address: ":9090"
  rate_limit_rps: 10
store:
  backend: redis
  redis_addr: "localhost:6379"
audit:
  advanced_bias: true
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q, want :9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.RateLimitRPS != 10 {
		t.Errorf("RateLimitRPS = %v, want 10", cfg.Server.RateLimitRPS)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cfg.Store.Backend)
	}
	if !cfg.Audit.AdvancedBias {
		t.Error("AdvancedBias should be true")
	}
	// Defaults still fill the rest.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAIRLENS_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("FAIRLENS_STORE_BACKEND", "postgres")
	t.Setenv("FAIRLENS_STORE_POSTGRES_URL", "postgres://localhost/fairlens")
	t.Setenv("FAIRLENS_AUDIT_ADVANCED_BIAS", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("ListenAddress = %q, want :7070", cfg.Server.ListenAddress)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("Backend = %q, want postgres", cfg.Store.Backend)
	}
	if !cfg.Audit.AdvancedBias {
		t.Error("AdvancedBias should be true")
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis" }},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }},
		{"bias threshold too high", func(c *Config) { c.Audit.BiasThreshold = 1.5 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitRPS = -1 }},
		{"sample rate out of range", func(c *Config) { c.Tracing.SampleRate = 2 }},
		{"hmac signing without key", func(c *Config) { c.Signing.Algorithm = "hmac" }},
		{"unknown signing algorithm", func(c *Config) { c.Signing.Algorithm = "rot13"; c.Signing.Key = "k" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tc.mutate(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Fatal("Validate should fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
}
