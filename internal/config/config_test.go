package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disc-herniation-assistant/internal/domain"
)

func newTestManager(t *testing.T, yaml string) *Manager {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)
	return m
}

func TestNewManager_Defaults(t *testing.T) {
	m := newTestManager(t, "")
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, domain.StorageJSON, cfg.Storage.Backend)
	assert.Equal(t, "pacientes.json", cfg.Storage.JSONPath)
	assert.Equal(t, []string{"knowledge_bases/base1.json", "knowledge_bases/base2.json"}, cfg.Knowledge.Sources)
	require.Len(t, cfg.Knowledge.Topics, 1)
	assert.Equal(t, domain.TopicConfig{ID: "hernia_de_disco", Trigger: "hernia de disco"}, cfg.Knowledge.Topics[0])
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, domain.MemoryInProcess, cfg.Memory.Backend)
	assert.Equal(t, 10, cfg.Memory.MaxExchanges)
	assert.False(t, cfg.Session.RequireIntakeForChat)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
}

func TestNewManager_FileOverrides(t *testing.T) {
	m := newTestManager(t, `
storage:
  backend: sqlite
  sqlite_path: /tmp/cases.db
knowledge:
  sources:
    - kb/one.json
  topics:
    - id: lombalgia
      trigger: dor lombar
session:
  require_intake_for_chat: true
`)
	cfg := m.GetConfig()

	assert.Equal(t, domain.StorageSQLite, m.GetStorageConfig().Backend)
	assert.Equal(t, "/tmp/cases.db", cfg.Storage.SQLitePath)
	assert.Equal(t, []string{"kb/one.json"}, cfg.Knowledge.Sources)
	assert.Equal(t, []domain.TopicConfig{{ID: "lombalgia", Trigger: "dor lombar"}}, cfg.Knowledge.Topics)
	assert.True(t, cfg.Session.RequireIntakeForChat)
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DISC_ASSIST_SERVER_PORT", "9090")
	t.Setenv("DISC_ASSIST_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("DISC_ASSIST_LOGGING_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	m := newTestManager(t, "")

	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.Equal(t, "gpt-4o-mini", m.GetLLMConfig().Model)
	assert.Equal(t, "sk-test", m.GetLLMConfig().APIKey)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
}

func TestNewManager_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := NewManager(WithConfigFile(path))
	assert.Error(t, err)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *domain.Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *domain.Config) { c.Storage.Backend = "mongo" },
			wantErr: "unknown storage backend",
		},
		{
			name: "postgres without url",
			mutate: func(c *domain.Config) {
				c.Storage.Backend = domain.StoragePostgres
				c.Storage.PostgresURL = ""
			},
			wantErr: "postgres_url",
		},
		{
			name:    "topic without id",
			mutate:  func(c *domain.Config) { c.Knowledge.Topics = []domain.TopicConfig{{Trigger: "x"}} },
			wantErr: "has no id",
		},
		{
			name:    "empty model",
			mutate:  func(c *domain.Config) { c.LLM.Model = "" },
			wantErr: "llm.model",
		},
		{
			name:    "negative memory window",
			mutate:  func(c *domain.Config) { c.Memory.MaxExchanges = -1 },
			wantErr: "memory.max_exchanges",
		},
		{
			name:    "unknown memory backend",
			mutate:  func(c *domain.Config) { c.Memory.Backend = "memcached" },
			wantErr: "unknown memory backend",
		},
		{
			name:    "bad log level",
			mutate:  func(c *domain.Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, "")
			tt.mutate(m.GetConfig())

			err := m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
