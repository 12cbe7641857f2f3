// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the ClaimGate server.
// It handles loading and parsing the YAML configuration file and provides
// structured access to server settings, collaborator endpoints, limit
// defaults, and the principal (API key) set.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network interface the API server binds to. Empty binds all.
	Host string `yaml:"host"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile writes logs to rotating files instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsMaxTotalSizeMB bounds each rotated log file. Zero uses the default.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb"`

	// Environment selects error-detail policy: development or production.
	Environment string `yaml:"environment"`

	Redis        RedisConfig     `yaml:"redis"`
	Database     DatabaseConfig  `yaml:"database"`
	ContentStore ContentConfig   `yaml:"content-store"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Fallback     FallbackConfig  `yaml:"fallback"`
	Pipeline     PipelineConfig  `yaml:"pipeline"`
	Cache        CacheConfig     `yaml:"cache"`
	Limits       LimitsConfig    `yaml:"limits"`

	// APIKeys is the principal set admitted by the gate.
	APIKeys []Principal `yaml:"api-keys"`
}

// RedisConfig connects the shared counter store and result cache backing.
// An empty Addr disables both; the server falls back to process-local
// approximate counters and treats every cache lookup as a miss.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite-path"`
}

// ContentConfig connects the content-addressed snippet store. An empty
// endpoint disables snippet hydration.
type ContentConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use-ssl"`
}

// EmbeddingConfig selects the embedding collaborator.
type EmbeddingConfig struct {
	// Provider is "http" (the embedding sidecar) or "openai".
	Provider     string `yaml:"provider"`
	BaseURL      string `yaml:"base-url"`
	OpenAIAPIKey string `yaml:"openai-api-key"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
}

// FallbackConfig controls the low-confidence fallback classifier.
type FallbackConfig struct {
	Enabled         bool    `yaml:"enabled"`
	OpenAIAPIKey    string  `yaml:"openai-api-key"`
	Model           string  `yaml:"model"`
	SimilarityFloor float64 `yaml:"similarity-floor"`
	MaxPromptTokens int     `yaml:"max-prompt-tokens"`
}

// PipelineConfig bounds the verification pipeline.
type PipelineConfig struct {
	TimeoutMS       int     `yaml:"timeout-ms"`
	StageTimeoutMS  int     `yaml:"stage-timeout-ms"`
	SearchLimit     int     `yaml:"search-limit"`
	SearchThreshold float64 `yaml:"search-threshold"`
	MaxCitations    int     `yaml:"max-citations"`
}

// CacheConfig sets per-namespace TTLs in seconds.
type CacheConfig struct {
	VerificationTTLSeconds int `yaml:"verification-ttl-s"`
	EmbeddingTTLSeconds    int `yaml:"embedding-ttl-s"`
	APIKeyTTLSeconds       int `yaml:"apikey-ttl-s"`
}

// LimitsConfig holds admission defaults applied when a principal omits them.
type LimitsConfig struct {
	WindowSeconds       int `yaml:"window-s"`
	DefaultRate         int `yaml:"default-rate"`
	DefaultDailyQuota   int `yaml:"default-daily-quota"`
	DefaultMonthlyQuota int `yaml:"default-monthly-quota"`
}

// Principal is one admitted API key with its accounting ceilings.
type Principal struct {
	ID           string `yaml:"id"`
	KeyHash      string `yaml:"key-hash"`
	Tier         string `yaml:"tier"`
	RateLimit    int    `yaml:"rate-limit"`
	DailyQuota   int    `yaml:"daily-quota"`
	MonthlyQuota int    `yaml:"monthly-quota"`
	ExpiresAt    string `yaml:"expires-at"`
}

// Tier values. Admin unlocks cache administration and analytics endpoints.
const (
	TierStandard = "standard"
	TierAdmin    = "admin"
)

// Expired reports whether the principal's credential has lapsed.
func (p *Principal) Expired(now time.Time) bool {
	if p.ExpiresAt == "" {
		return false
	}
	expires, err := time.Parse(time.RFC3339, p.ExpiresAt)
	if err != nil {
		// An unparseable expiry locks the key out rather than leaving it open.
		return true
	}
	return now.After(expires)
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "claimgate.db"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "http"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Fallback.SimilarityFloor == 0 {
		c.Fallback.SimilarityFloor = 0.8
	}
	if c.Fallback.Model == "" {
		c.Fallback.Model = "gpt-4o-mini"
	}
	if c.Fallback.MaxPromptTokens == 0 {
		c.Fallback.MaxPromptTokens = 2048
	}
	if c.Pipeline.TimeoutMS == 0 {
		c.Pipeline.TimeoutMS = 300
	}
	if c.Pipeline.StageTimeoutMS == 0 {
		c.Pipeline.StageTimeoutMS = 150
	}
	if c.Pipeline.SearchLimit == 0 {
		c.Pipeline.SearchLimit = 10
	}
	if c.Pipeline.SearchThreshold == 0 {
		c.Pipeline.SearchThreshold = 0.3
	}
	if c.Pipeline.MaxCitations == 0 {
		c.Pipeline.MaxCitations = 5
	}
	if c.Cache.VerificationTTLSeconds == 0 {
		c.Cache.VerificationTTLSeconds = 300
	}
	if c.Cache.EmbeddingTTLSeconds == 0 {
		c.Cache.EmbeddingTTLSeconds = 3600
	}
	if c.Cache.APIKeyTTLSeconds == 0 {
		c.Cache.APIKeyTTLSeconds = 300
	}
	if c.Limits.WindowSeconds == 0 {
		c.Limits.WindowSeconds = 60
	}
	if c.Limits.DefaultRate == 0 {
		c.Limits.DefaultRate = 60
	}
	if c.Limits.DefaultDailyQuota == 0 {
		c.Limits.DefaultDailyQuota = 1000
	}
	if c.Limits.DefaultMonthlyQuota == 0 {
		c.Limits.DefaultMonthlyQuota = 20000
	}
	if c.ContentStore.Bucket == "" {
		c.ContentStore.Bucket = "veritas-content"
	}

	for i := range c.APIKeys {
		p := &c.APIKeys[i]
		if p.Tier == "" {
			p.Tier = TierStandard
		}
		if p.RateLimit == 0 {
			p.RateLimit = c.Limits.DefaultRate
		}
		if p.DailyQuota == 0 {
			p.DailyQuota = c.Limits.DefaultDailyQuota
		}
		if p.MonthlyQuota == 0 {
			p.MonthlyQuota = c.Limits.DefaultMonthlyQuota
		}
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("config: database.dsn is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Embedding.Provider {
	case "http":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("config: embedding.base-url is required for the http provider")
		}
	case "openai":
		if c.Embedding.OpenAIAPIKey == "" {
			return fmt.Errorf("config: embedding.openai-api-key is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Fallback.Enabled && c.Fallback.OpenAIAPIKey == "" {
		return fmt.Errorf("config: fallback.openai-api-key is required when fallback is enabled")
	}
	seen := make(map[string]struct{}, len(c.APIKeys))
	for _, p := range c.APIKeys {
		if p.ID == "" || p.KeyHash == "" {
			return fmt.Errorf("config: api-keys entries require id and key-hash")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("config: duplicate api key id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// IsProduction reports whether detailed errors must be suppressed.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PipelineTimeout returns the full-pipeline deadline.
func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutMS) * time.Millisecond
}

// StageTimeout returns the per-stage deadline for sub-calls.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Pipeline.StageTimeoutMS) * time.Millisecond
}

// RateWindow returns the fixed rate-limit window duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Limits.WindowSeconds) * time.Second
}
