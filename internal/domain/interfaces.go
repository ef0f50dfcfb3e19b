package domain

import (
	"context"
)

// CaseStore persists patient case records. Implementations differ in how
// much of the collection an operation touches, not in observable results.
type CaseStore interface {
	// Load returns every record, or an empty map when nothing is stored yet.
	Load(ctx context.Context) (map[string]*CaseRecord, error)

	// Get returns the record for id, or nil when the id is unknown.
	Get(ctx context.Context, id string) (*CaseRecord, error)

	// UpsertIntake creates the record or overwrites its intake fields.
	// A non-empty analysis is appended to the record's analyses.
	UpsertIntake(ctx context.Context, id string, intake Intake, analysis string) error

	// AppendInteraction appends a chat turn, creating a bare record for an
	// unknown id.
	AppendInteraction(ctx context.Context, id string, turn Interaction) error

	// Restore writes rec under id exactly as given, replacing any existing
	// record. Used to move data between backends.
	Restore(ctx context.Context, id string, rec *CaseRecord) error

	// GetHistory returns the chat transcript of id, empty when unknown.
	GetHistory(ctx context.Context, id string) ([]Interaction, error)

	// Close releases resources held by the store.
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetStorageConfig() *StorageConfig
	GetLLMConfig() *LLMConfig
	Validate() error
}
