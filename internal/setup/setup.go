// Package setup provides data and client-integration utilities for the
// disc herniation assistant.
package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disc-herniation-assistant/internal/domain"
)

// DefaultServerName is the key under which the MCP server is registered in
// client configuration files.
const DefaultServerName = "disc-herniation-assistant"

// ClientConfig represents an MCP client configuration file.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// RegisterOptions contains options for registering the MCP server with a client.
type RegisterOptions struct {
	ConfigPath string
	ServerName string
	BinaryPath string
	Env        map[string]string
}

// LoadClientConfig loads an MCP client configuration. A missing file yields
// an empty configuration.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClientConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	return &config, nil
}

// SaveClientConfig writes an MCP client configuration.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RegisterMCPServer adds or replaces the server entry in a client
// configuration, keeping every other entry.
func RegisterMCPServer(opts RegisterOptions) error {
	if opts.ConfigPath == "" {
		return fmt.Errorf("client config path is required")
	}
	if opts.BinaryPath == "" {
		return fmt.Errorf("server binary path is required")
	}
	name := opts.ServerName
	if name == "" {
		name = DefaultServerName
	}

	config, err := LoadClientConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	config.MCPServers[name] = MCPServerConfig{
		Command: opts.BinaryPath,
		Env:     opts.Env,
	}

	return SaveClientConfig(opts.ConfigPath, config)
}

// Status summarizes where patient data and knowledge bases live.
type Status struct {
	Backend          string
	Location         string
	RecordCount      int
	StoreError       error
	KnowledgeSources map[string]bool
}

// StoreLocation returns the file path or URL the configured backend uses.
func StoreLocation(cfg domain.StorageConfig) string {
	switch cfg.Backend {
	case domain.StorageSQLite:
		return cfg.SQLitePath
	case domain.StoragePostgres:
		return "postgres (url configured)"
	default:
		return cfg.JSONPath
	}
}

// GetStatus counts the stored records and checks which knowledge sources
// exist. Store failures are reported in the status, not returned.
func GetStatus(ctx context.Context, cfg *domain.Config, store domain.CaseStore) *Status {
	status := &Status{
		Backend:          cfg.Storage.Backend,
		Location:         StoreLocation(cfg.Storage),
		KnowledgeSources: make(map[string]bool, len(cfg.Knowledge.Sources)),
	}

	if records, err := store.Load(ctx); err != nil {
		status.StoreError = err
	} else {
		status.RecordCount = len(records)
	}

	for _, source := range cfg.Knowledge.Sources {
		_, err := os.Stat(source)
		status.KnowledgeSources[source] = err == nil
	}
	return status
}
