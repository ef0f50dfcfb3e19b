package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Supported PostgreSQL drivers
const (
	DriverPGX = "pgx"
	DriverPQ  = "postgres"
)

// Config holds database configuration
type Config struct {
	URL          string
	Driver       string
	MaxOpenConns int
	MaxIdleConns int
	MaxConnLife  time.Duration
}

// NewConnection opens a PostgreSQL connection pool and verifies it with a ping.
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*sql.DB, error) {
	var db *sql.DB

	switch config.Driver {
	case DriverPQ:
		var err error
		db, err = sql.Open("postgres", config.URL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
	case DriverPGX, "":
		connConfig, err := pgx.ParseConfig(config.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing database config: %w", err)
		}
		db = stdlib.OpenDB(*connConfig)
	default:
		return nil, fmt.Errorf("unknown postgres driver: %s", config.Driver)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	maxLife := config.MaxConnLife
	if maxLife == 0 {
		maxLife = 5 * time.Minute
	}
	db.SetConnMaxLifetime(maxLife)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"driver":         config.Driver,
		"max_open_conns": config.MaxOpenConns,
		"max_idle_conns": config.MaxIdleConns,
	}).Info("Database connection pool established")

	return db, nil
}
