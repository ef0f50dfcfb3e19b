// Package casestore persists patient case records.
package casestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/logging"
)

// DefaultPath is where the patients document lives unless configured.
const DefaultPath = "pacientes.json"

// FileStore keeps every record in one JSON document. Each operation reads
// the whole document, changes one record and writes the whole document back
// through a temporary file that is renamed over the original.
//
// Operations within one process are serialized. Concurrent writers in other
// processes are not coordinated; the last rename wins.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logrus.Logger
}

// NewFileStore creates a store over the document at path. The document is
// created on the first write.
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the location of the patients document.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns all records
func (s *FileStore) Load(ctx context.Context) (map[string]*domain.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// Get returns a copy of one record, or nil when absent.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.CaseRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return records[id], nil
}

// UpsertIntake creates or updates the intake fields of a record
func (s *FileStore) UpsertIntake(ctx context.Context, id string, intake domain.Intake, analysis string) error {
	return s.update(ctx, func(records map[string]*domain.CaseRecord) {
		if rec, ok := records[id]; ok {
			rec.ApplyIntake(intake, analysis)
			return
		}
		records[id] = domain.NewCaseRecord(intake, analysis)
	})
}

// AppendInteraction appends a chat turn, creating a record with only the
// transcript when id is unknown.
func (s *FileStore) AppendInteraction(ctx context.Context, id string, turn domain.Interaction) error {
	return s.update(ctx, func(records map[string]*domain.CaseRecord) {
		rec, ok := records[id]
		if !ok {
			rec = &domain.CaseRecord{}
			rec.Normalize()
			records[id] = rec
		}
		rec.AppendInteraction(turn)
	})
}

// Restore stores a copy of rec under id, replacing any existing record
func (s *FileStore) Restore(ctx context.Context, id string, rec *domain.CaseRecord) error {
	return s.update(ctx, func(records map[string]*domain.CaseRecord) {
		restored := rec.Clone()
		restored.Normalize()
		records[id] = restored
	})
}

// GetHistory returns the transcript of a record
func (s *FileStore) GetHistory(ctx context.Context, id string) ([]domain.Interaction, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return []domain.Interaction{}, nil
	}
	return rec.Interactions, nil
}

// Close is a no-op; the store holds no open handles between operations.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(ctx context.Context, mutate func(map[string]*domain.CaseRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	mutate(records)
	return s.write(records)
}

func (s *FileStore) read() (map[string]*domain.CaseRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*domain.CaseRecord{}, nil
		}
		return nil, &domain.DataCorruptionError{Path: s.path, Err: err}
	}

	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DataCorruptionError{Path: s.path, Err: err}
	}
	return records, nil
}

// write replaces the document atomically.
func (s *FileStore) write(records map[string]*domain.CaseRecord) error {
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return fmt.Errorf("encoding patients document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing patients document: %w", err)
	}
	committed = true

	s.logger.WithFields(logrus.Fields{
		"path":    s.path,
		"records": len(records),
		"bytes":   buf.Len(),
	}).Debug("Patients document written")
	return nil
}

// Decode reads a patients document. A JSON null document is an empty
// collection; a null record is rejected.
func Decode(r io.Reader) (map[string]*domain.CaseRecord, error) {
	var records map[string]*domain.CaseRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		return map[string]*domain.CaseRecord{}, nil
	}
	for id, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("record %s is null", logging.PatientRef(id))
		}
		rec.Normalize()
	}
	return records, nil
}

// Encode writes a patients document with four-space indentation and
// unescaped non-ASCII text.
func Encode(w io.Writer, records map[string]*domain.CaseRecord) error {
	for _, rec := range records {
		rec.Normalize()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
