package casestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/database"
	"github.com/disc-herniation-assistant/internal/domain"
)

// PostgresStore implements domain.CaseStore using PostgreSQL.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a new PostgreSQL case store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		sqlStore: &sqlStore{db: db, dialect: dialectPostgres, logger: logger},
	}, nil
}

// NewPostgresStoreFromConfig connects to PostgreSQL, applies pending
// migrations when enabled and returns the store.
func NewPostgresStoreFromConfig(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (*PostgresStore, error) {
	if cfg.AutoMigrate {
		runner, err := database.NewMigrationRunner(cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		err = runner.Up(ctx)
		if closeErr := runner.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close migration runner")
		}
		if err != nil {
			return nil, err
		}
	}

	db, err := database.NewConnection(ctx, database.Config{
		URL:          cfg.PostgresURL,
		Driver:       cfg.PostgresDriver,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
