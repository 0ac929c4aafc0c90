// Package config loads the service configuration from YAML with
// FAIRLENS_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	WAL     WALConfig     `yaml:"wal"`
	Audit   AuditConfig   `yaml:"audit"`
	Signing SigningConfig `yaml:"signing"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	MetricsUser     string        `yaml:"metrics_user"`
	MetricsPass     string        `yaml:"metrics_pass"`

	// GatewayAuth requires the gateway-verified identity headers on audit
	// requests. Health and metrics stay reachable without them.
	GatewayAuth bool `yaml:"gateway_auth"`
}

// StoreConfig selects and configures the result store backend.
type StoreConfig struct {
	Backend       string        `yaml:"backend"` // memory, redis, postgres
	SnapshotPath  string        `yaml:"snapshot_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	PostgresURL   string        `yaml:"postgres_url"`
	ResultTTL     time.Duration `yaml:"result_ttl"`
}

// WALConfig controls the inbox write-ahead log.
type WALConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// AuditConfig tunes the analysis engines.
type AuditConfig struct {
	AdvancedBias        bool    `yaml:"advanced_bias"`
	BiasThreshold       float64 `yaml:"bias_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// SigningConfig controls result signing. Signed results let downstream
// consumers check that a stored or forwarded audit report was not altered.
type SigningConfig struct {
	Algorithm string `yaml:"algorithm"` // none, hmac, ed25519
	Key       string `yaml:"key"`       // HMAC secret or base64 Ed25519 seed
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// ApplyDefaults fills unset fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 4 << 20
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 100
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.ResultTTL == 0 {
		cfg.Store.ResultTTL = 24 * time.Hour
	}

	if cfg.WAL.Dir == "" {
		cfg.WAL.Dir = "data/wal"
	}

	if cfg.Audit.BiasThreshold == 0 {
		cfg.Audit.BiasThreshold = 0.8
	}
	if cfg.Audit.SimilarityThreshold == 0 {
		cfg.Audit.SimilarityThreshold = 0.5
	}

	if cfg.Signing.Algorithm == "" {
		cfg.Signing.Algorithm = "none"
	}

	if cfg.Tracing.OTLPEndpoint == "" {
		cfg.Tracing.OTLPEndpoint = "localhost:4318"
	}
	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 0.1
	}
}

// Validate rejects configurations the server cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory":
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	case "postgres":
		if cfg.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of memory, redis, postgres", cfg.Store.Backend)
	}

	if cfg.Audit.BiasThreshold <= 0 || cfg.Audit.BiasThreshold > 1 {
		return fmt.Errorf("audit.bias_threshold %v must be in (0, 1]", cfg.Audit.BiasThreshold)
	}
	if cfg.Audit.SimilarityThreshold <= 0 || cfg.Audit.SimilarityThreshold > 1 {
		return fmt.Errorf("audit.similarity_threshold %v must be in (0, 1]", cfg.Audit.SimilarityThreshold)
	}
	if cfg.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must not be negative")
	}

	switch cfg.Signing.Algorithm {
	case "none":
	case "hmac", "ed25519":
		if cfg.Signing.Key == "" {
			return fmt.Errorf("signing.key is required for the %s algorithm", cfg.Signing.Algorithm)
		}
	default:
		return fmt.Errorf("signing.algorithm %q is not one of none, hmac, ed25519", cfg.Signing.Algorithm)
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate %v must be in [0, 1]", cfg.Tracing.SampleRate)
	}
	return nil
}

// Load reads a YAML config file, applies defaults and environment
// overrides, and validates the result. An empty path yields the default
// configuration (still subject to overrides).
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies FAIRLENS_SECTION_FIELD environment
// variables on top of the file configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("FAIRLENS_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("FAIRLENS_SERVER_METRICS_USER"); val != "" {
		cfg.Server.MetricsUser = val
	}
	if val := os.Getenv("FAIRLENS_SERVER_METRICS_PASS"); val != "" {
		cfg.Server.MetricsPass = val
	}
	if val := os.Getenv("FAIRLENS_SERVER_RATE_LIMIT_RPS"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Server.RateLimitRPS = f
		}
	}
	if val := os.Getenv("FAIRLENS_SERVER_GATEWAY_AUTH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.GatewayAuth = b
		}
	}

	if val := os.Getenv("FAIRLENS_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("FAIRLENS_STORE_REDIS_ADDR"); val != "" {
		cfg.Store.RedisAddr = val
	}
	if val := os.Getenv("FAIRLENS_STORE_REDIS_PASSWORD"); val != "" {
		cfg.Store.RedisPassword = val
	}
	if val := os.Getenv("FAIRLENS_STORE_POSTGRES_URL"); val != "" {
		cfg.Store.PostgresURL = val
	}
	if val := os.Getenv("FAIRLENS_STORE_RESULT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Store.ResultTTL = d
		}
	}

	if val := os.Getenv("FAIRLENS_WAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.WAL.Enabled = b
		}
	}
	if val := os.Getenv("FAIRLENS_WAL_DIR"); val != "" {
		cfg.WAL.Dir = val
	}

	if val := os.Getenv("FAIRLENS_AUDIT_ADVANCED_BIAS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.AdvancedBias = b
		}
	}

	if val := os.Getenv("FAIRLENS_SIGNING_ALGORITHM"); val != "" {
		cfg.Signing.Algorithm = val
	}
	if val := os.Getenv("FAIRLENS_SIGNING_KEY"); val != "" {
		cfg.Signing.Key = val
	}

	if val := os.Getenv("FAIRLENS_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("FAIRLENS_TRACING_OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.OTLPEndpoint = val
	}
}
