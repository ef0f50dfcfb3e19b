package casestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disc-herniation-assistant/internal/domain"
)

func createTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cases.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "cases.db")

	store, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) domain.CaseStore {
		return createTestSQLiteStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cases.db")

	store, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "dor"}, "a1"))
	require.NoError(t, store.AppendInteraction(ctx, "Ana", domain.Interaction{Question: "Q1", Answer: "A1"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, "Ana")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"a1"}, rec.Analyses)
	assert.Equal(t, []domain.Interaction{{Question: "Q1", Answer: "A1"}}, rec.Interactions)
}

func TestSQLiteStore_LoadAssemblesRecords(t *testing.T) {
	ctx := context.Background()
	store := createTestSQLiteStore(t)

	require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "a"}, "a1"))
	require.NoError(t, store.UpsertIntake(ctx, "Bruno", domain.Intake{Symptoms: "b"}, "b1"))
	require.NoError(t, store.AppendInteraction(ctx, "Bruno", domain.Interaction{Question: "QB", Answer: "AB"}))
	require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "a"}, "a2"))

	records, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a1", "a2"}, records["Ana"].Analyses)
	assert.Empty(t, records["Ana"].Interactions)
	assert.Equal(t, []string{"b1"}, records["Bruno"].Analyses)
	assert.Len(t, records["Bruno"].Interactions, 1)
}
