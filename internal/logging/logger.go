// Package logging builds the process logger and scrubs patient identifiers
// from log fields.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// NewLogger creates a logrus logger from the logging configuration.
// The returned closer releases a log file when output points at one.
func NewLogger(cfg domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	switch strings.ToLower(cfg.Format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f
	}

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Redactor renders patient identifiers for log fields.
type Redactor struct {
	enabled bool
}

// NewRedactor returns a Redactor. When enabled, identifiers are replaced by a
// stable hash prefix so log lines for one patient can still be correlated.
func NewRedactor(enabled bool) Redactor {
	return Redactor{enabled: enabled}
}

// PatientRef returns the log-safe form of a patient identifier.
func (r Redactor) PatientRef(id string) string {
	if !r.enabled {
		return id
	}
	return PatientRef(id)
}

// PatientRef hashes a patient identifier.
func PatientRef(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "pt_" + hex.EncodeToString(sum[:])[:12]
}
