// Package knowledge reads the static topic fact sheets and matches questions
// against them.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Reader loads knowledge base documents from disk. Documents are read on
// every call so edits take effect without a restart.
type Reader struct {
	logger *logrus.Logger
}

// NewReader creates a knowledge base reader
func NewReader(logger *logrus.Logger) *Reader {
	return &Reader{logger: logger}
}

// Load reads the document at source. A missing document yields an empty
// knowledge base; any other failure is a *domain.KnowledgeBaseError.
func (r *Reader) Load(ctx context.Context, source string) (domain.KnowledgeBase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.WithField("source", source).Debug("Knowledge base not found, treating as empty")
			return domain.KnowledgeBase{}, nil
		}
		return nil, &domain.KnowledgeBaseError{Source: source, Err: err}
	}

	kb, err := Parse(data)
	if err != nil {
		return nil, &domain.KnowledgeBaseError{Source: source, Err: err}
	}
	return kb, nil
}

// Parse validates and decodes a knowledge base document. The document must
// be an object of topic objects. Absent fields decode to their zero value;
// fields of the wrong type are rejected.
func Parse(data []byte) (domain.KnowledgeBase, error) {
	var topics map[string]json.RawMessage
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}

	kb := make(domain.KnowledgeBase, len(topics))
	for id, raw := range topics {
		entry, err := parseEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", id, err)
		}
		kb[id] = entry
	}
	return kb, nil
}

func parseEntry(raw json.RawMessage) (domain.KnowledgeEntry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return domain.KnowledgeEntry{}, fmt.Errorf("topic must be an object")
	}

	var entry domain.KnowledgeEntry
	var err error
	if entry.Definition, err = textField(fields, "definicao"); err != nil {
		return entry, err
	}
	if entry.Diagnosis, err = textField(fields, "diagnostico"); err != nil {
		return entry, err
	}
	if entry.Causes, err = listField(fields, "causas"); err != nil {
		return entry, err
	}
	if entry.Symptoms, err = listField(fields, "sintomas"); err != nil {
		return entry, err
	}
	if entry.Treatments, err = listField(fields, "tratamentos"); err != nil {
		return entry, err
	}
	if entry.Prevention, err = listField(fields, "prevenção", "prevencao"); err != nil {
		return entry, err
	}
	return entry, nil
}

// lookup returns the first of names present in fields. JSON null counts as
// absent.
func lookup(fields map[string]json.RawMessage, names ...string) (string, json.RawMessage, bool) {
	for _, name := range names {
		if raw, ok := fields[name]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return name, raw, true
		}
	}
	return names[0], nil, false
}

func textField(fields map[string]json.RawMessage, names ...string) (string, error) {
	name, raw, ok := lookup(fields, names...)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return s, nil
}

func listField(fields map[string]json.RawMessage, names ...string) ([]string, error) {
	name, raw, ok := lookup(fields, names...)
	if !ok {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("field %q must be a list of strings", name)
	}
	return items, nil
}
