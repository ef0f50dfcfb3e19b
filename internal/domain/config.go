package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Storage backends
const (
	StorageJSON     = "json"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// StorageConfig selects and configures the case store backend
type StorageConfig struct {
	Backend        string `mapstructure:"backend"` // "json", "sqlite", "postgres"
	JSONPath       string `mapstructure:"json_path"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	PostgresURL    string `mapstructure:"postgres_url"`
	PostgresDriver string `mapstructure:"postgres_driver"` // "pgx" or "postgres" (lib/pq)
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

// TopicConfig names a knowledge base topic and the phrase that selects it
type TopicConfig struct {
	ID      string `mapstructure:"id"`
	Trigger string `mapstructure:"trigger"`
}

// KnowledgeConfig lists the knowledge base documents in priority order
type KnowledgeConfig struct {
	Sources []string      `mapstructure:"sources"`
	Topics  []TopicConfig `mapstructure:"topics"`
}

// LLMConfig represents generative backend configuration
type LLMConfig struct {
	APIKey      string               `mapstructure:"api_key"`
	BaseURL     string               `mapstructure:"base_url"`
	Model       string               `mapstructure:"model"`
	Temperature float32              `mapstructure:"temperature"`
	Timeout     time.Duration        `mapstructure:"timeout"`
	RateLimit   float64              `mapstructure:"rate_limit"` // requests per second, 0 disables
	Breaker     CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// Memory backends
const (
	MemoryInProcess = "memory"
	MemoryRedis     = "redis"
)

// MemoryConfig configures transient conversation memory
type MemoryConfig struct {
	Backend      string        `mapstructure:"backend"` // "memory", "redis"
	MaxSessions  int           `mapstructure:"max_sessions"`
	MaxExchanges int           `mapstructure:"max_exchanges"` // recent exchanges kept per session
	RedisURL     string        `mapstructure:"redis_url"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// SessionConfig tunes the intake/chat workflow
type SessionConfig struct {
	RequireIntakeForChat bool `mapstructure:"require_intake_for_chat"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	Output        string `mapstructure:"output"` // "stdout", "stderr" or a file path
	RedactPatient bool   `mapstructure:"redact_patient"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
