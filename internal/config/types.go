package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Oracle   OracleConfig   `yaml:"oracle" mapstructure:"oracle"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RequestsPerMin int           `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// PipelineConfig contains detection and anonymization configuration.
type PipelineConfig struct {
	Detectors       []string      `yaml:"detectors" mapstructure:"detectors"`
	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`
	DocumentTimeout time.Duration `yaml:"document_timeout" mapstructure:"document_timeout"`
	PseudonymPrefix string        `yaml:"pseudonym_prefix" mapstructure:"pseudonym_prefix"`
}

// OracleConfig contains generative-model oracle configuration. The
// endpoint must speak the OpenAI chat-completions API (Groq does).
type OracleConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AuditConfig contains the relational audit store configuration.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// SearchConfig contains the regulation-excerpt similarity search
// configuration (PostgreSQL + pgvector).
type SearchConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL  string  `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns int     `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int     `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	TopN         int     `yaml:"top_n" mapstructure:"top_n"`
	MinScore     float32 `yaml:"min_score" mapstructure:"min_score"`
}

// CacheConfig contains Redis cache configuration for excerpt search
// results.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestsPerMin: 120,
			MaxBodyBytes:   1 << 20,
		},
		Pipeline: PipelineConfig{
			Detectors:       []string{"all"},
			MaxRetries:      2,
			DocumentTimeout: 2 * time.Minute,
			PseudonymPrefix: "Subject",
		},
		Oracle: OracleConfig{
			Enabled:     true,
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-70b-versatile",
			Temperature: 0.1,
			MaxTokens:   4000,
			Timeout:     30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:         false,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Search: SearchConfig{
			Enabled:      false,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			TopN:         3,
			MinScore:     0.2,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "veil:excerpts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
