package casestore

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disc-herniation-assistant/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// runStoreContract checks the behaviour every CaseStore backend shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.CaseStore) {
	ctx := context.Background()

	t.Run("load empty store", func(t *testing.T) {
		store := newStore(t)
		records, err := store.Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("first intake creates record", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "dor lombar"}, "Procure um ortopedista"))

		rec, err := store.Get(ctx, "Ana")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "dor lombar", rec.Symptoms)
		assert.Equal(t, "", rec.MedicalHistory)
		assert.Equal(t, "", rec.ExamNotes)
		assert.Len(t, rec.Analyses, 1)
		assert.Empty(t, rec.Interactions)
	})

	t.Run("intake without analysis", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertIntake(ctx, "Bruno", domain.Intake{Symptoms: "s"}, ""))

		rec, err := store.Get(ctx, "Bruno")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.NotNil(t, rec.Analyses)
		assert.Empty(t, rec.Analyses)
	})

	t.Run("resubmission overwrites fields and keeps lists", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "a", MedicalHistory: "h"}, "first"))
		require.NoError(t, store.AppendInteraction(ctx, "Ana", domain.Interaction{Question: "Q1", Answer: "A1"}))
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "b"}, ""))
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "c", ExamNotes: "rm"}, "second"))

		rec, err := store.Get(ctx, "Ana")
		require.NoError(t, err)
		assert.Equal(t, "c", rec.Symptoms)
		assert.Equal(t, "", rec.MedicalHistory)
		assert.Equal(t, "rm", rec.ExamNotes)
		assert.Equal(t, []string{"first", "second"}, rec.Analyses)
		assert.Equal(t, []domain.Interaction{{Question: "Q1", Answer: "A1"}}, rec.Interactions)
	})

	t.Run("interaction for unknown id creates bare record", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AppendInteraction(ctx, "Carla", domain.Interaction{Question: "Q", Answer: "A"}))

		rec, err := store.Get(ctx, "Carla")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "", rec.Symptoms)
		assert.Equal(t, "", rec.MedicalHistory)
		assert.Equal(t, "", rec.ExamNotes)
		assert.Empty(t, rec.Analyses)
		assert.Equal(t, []domain.Interaction{{Question: "Q", Answer: "A"}}, rec.Interactions)
		assert.False(t, rec.HasIntake())
	})

	t.Run("history is chronological", func(t *testing.T) {
		store := newStore(t)
		for _, q := range []string{"Q1", "Q2", "Q3"} {
			require.NoError(t, store.AppendInteraction(ctx, "Ana", domain.Interaction{Question: q, Answer: "A" + q[1:]}))
		}

		history, err := store.GetHistory(ctx, "Ana")
		require.NoError(t, err)
		assert.Equal(t, []domain.Interaction{
			{Question: "Q1", Answer: "A1"},
			{Question: "Q2", Answer: "A2"},
			{Question: "Q3", Answer: "A3"},
		}, history)
	})

	t.Run("history of unknown id is empty", func(t *testing.T) {
		store := newStore(t)
		history, err := store.GetHistory(ctx, "Nobody")
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)

		rec, err := store.Get(ctx, "Nobody")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("identifiers are exact strings", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "1"}, ""))
		require.NoError(t, store.UpsertIntake(ctx, "ana", domain.Intake{Symptoms: "2"}, ""))
		require.NoError(t, store.UpsertIntake(ctx, "Ana ", domain.Intake{Symptoms: "3"}, ""))

		records, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, "1", records["Ana"].Symptoms)
	})

	t.Run("analyses grow with non-empty submissions", func(t *testing.T) {
		store := newStore(t)
		analyses := []string{"x", "", "y", "", "z"}
		want := 0
		for _, a := range analyses {
			require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "s"}, a))
			if a != "" {
				want++
			}
			rec, err := store.Get(ctx, "Ana")
			require.NoError(t, err)
			assert.Len(t, rec.Analyses, want)
		}
	})

	t.Run("non-ascii text survives", func(t *testing.T) {
		store := newStore(t)
		intake := domain.Intake{Symptoms: "dor na região lombar", MedicalHistory: "cirurgia prévia <L4>"}
		require.NoError(t, store.UpsertIntake(ctx, "João", intake, "Análise & conduta"))

		records, err := store.Load(ctx)
		require.NoError(t, err)
		rec := records["João"]
		require.NotNil(t, rec)
		assert.Equal(t, intake.Symptoms, rec.Symptoms)
		assert.Equal(t, intake.MedicalHistory, rec.MedicalHistory)
		assert.Equal(t, []string{"Análise & conduta"}, rec.Analyses)
	})
	t.Run("restore writes the record verbatim", func(t *testing.T) {
		store := newStore(t)
		rec := &domain.CaseRecord{
			Symptoms:     "dor",
			Analyses:     []string{"a1", "", "a3"},
			Interactions: []domain.Interaction{{Question: "Q1", Answer: ""}},
		}
		require.NoError(t, store.Restore(ctx, "Ana", rec))

		got, err := store.Get(ctx, "Ana")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "dor", got.Symptoms)
		assert.Equal(t, []string{"a1", "", "a3"}, got.Analyses)
		assert.Equal(t, []domain.Interaction{{Question: "Q1", Answer: ""}}, got.Interactions)
	})

	t.Run("restore replaces an existing record", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "old"}, "old analysis"))
		require.NoError(t, store.AppendInteraction(ctx, "Ana", domain.Interaction{Question: "Q", Answer: "A"}))

		require.NoError(t, store.Restore(ctx, "Ana", &domain.CaseRecord{Symptoms: "new", Analyses: []string{"x"}}))

		got, err := store.Get(ctx, "Ana")
		require.NoError(t, err)
		assert.Equal(t, "new", got.Symptoms)
		assert.Equal(t, []string{"x"}, got.Analyses)
		assert.Empty(t, got.Interactions)
	})
}
