package casestore

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Export writes every record of store to w as a patients document.
func Export(ctx context.Context, store domain.CaseStore, w io.Writer) (int, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}
	if err := Encode(w, records); err != nil {
		return 0, fmt.Errorf("failed to encode records: %w", err)
	}
	return len(records), nil
}

// Import copies records from a patients document into store. Identifiers
// already present in store are skipped, never merged.
func Import(ctx context.Context, store domain.CaseStore, r io.Reader) (imported int, skipped int, err error) {
	records, err := Decode(r)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode patients document: %w", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		existing, err := store.Get(ctx, id)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := store.Restore(ctx, id, records[id]); err != nil {
			return imported, skipped, fmt.Errorf("failed to import record: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
