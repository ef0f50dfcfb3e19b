package casestore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Open returns the case store selected by cfg.Backend.
func Open(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (domain.CaseStore, error) {
	switch cfg.Backend {
	case domain.StorageJSON, "":
		logger.WithField("path", cfg.JSONPath).Info("Using JSON document case store")
		return NewFileStore(cfg.JSONPath, logger), nil
	case domain.StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case domain.StoragePostgres:
		return NewPostgresStoreFromConfig(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
