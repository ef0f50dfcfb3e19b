package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// Option customizes how a Manager reads its sources.
type Option func(*Manager)

// WithConfigFile reads configuration from an explicit file instead of the
// default search paths.
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.v.SetConfigFile(path)
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	v := m.v
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/disc-assistant/")
	}

	v.SetEnvPrefix("DISC_ASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The key name every OpenAI tool reads
	if err := v.BindEnv("llm.api_key", "DISC_ASSIST_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return fmt.Errorf("binding llm.api_key: %w", err)
	}

	m.setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "90s")

	// Storage defaults
	v.SetDefault("storage.backend", domain.StorageJSON)
	v.SetDefault("storage.json_path", "pacientes.json")
	v.SetDefault("storage.sqlite_path", "data/pacientes.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.postgres_driver", "pgx")
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 2)

	// Knowledge base defaults, in priority order
	v.SetDefault("knowledge.sources", []string{
		"knowledge_bases/base1.json",
		"knowledge_bases/base2.json",
	})
	v.SetDefault("knowledge.topics", []map[string]interface{}{
		{"id": "hernia_de_disco", "trigger": "hernia de disco"},
	})

	// Generative backend defaults
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.rate_limit", 2)
	v.SetDefault("llm.circuit_breaker.max_requests", 1)
	v.SetDefault("llm.circuit_breaker.interval", "60s")
	v.SetDefault("llm.circuit_breaker.timeout", "30s")
	v.SetDefault("llm.circuit_breaker.min_requests", 3)
	v.SetDefault("llm.circuit_breaker.failure_ratio", 0.6)

	// Conversation memory defaults
	v.SetDefault("memory.backend", domain.MemoryInProcess)
	v.SetDefault("memory.max_sessions", 500)
	v.SetDefault("memory.max_exchanges", 10)
	v.SetDefault("memory.redis_url", "redis://localhost:6379/0")
	v.SetDefault("memory.ttl", "2h")
	v.SetDefault("memory.key_prefix", "disc-assist:memory:")

	v.SetDefault("session.require_intake_for_chat", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.redact_patient", true)

	v.SetDefault("mcp.server_name", "disc-herniation-assistant")
	v.SetDefault("mcp.server_version", "v0.1.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStorageConfig returns case store configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetLLMConfig returns generative backend configuration
func (m *Manager) GetLLMConfig() *domain.LLMConfig {
	return &m.config.LLM
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Backend {
	case domain.StorageJSON:
		if config.Storage.JSONPath == "" {
			return fmt.Errorf("storage.json_path is required for the json backend")
		}
	case domain.StorageSQLite:
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case domain.StoragePostgres:
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres backend")
		}
		if d := config.Storage.PostgresDriver; d != "pgx" && d != "postgres" {
			return fmt.Errorf("unknown postgres driver: %s", d)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", config.Storage.Backend)
	}

	for i, topic := range config.Knowledge.Topics {
		if strings.TrimSpace(topic.ID) == "" {
			return fmt.Errorf("knowledge topic %d has no id", i)
		}
	}

	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}

	if config.Memory.MaxExchanges < 0 {
		return fmt.Errorf("memory.max_exchanges cannot be negative")
	}
	switch config.Memory.Backend {
	case domain.MemoryInProcess:
		if config.Memory.MaxSessions <= 0 {
			return fmt.Errorf("memory.max_sessions must be positive")
		}
	case domain.MemoryRedis:
		if config.Memory.RedisURL == "" {
			return fmt.Errorf("memory.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown memory backend: %s", config.Memory.Backend)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
