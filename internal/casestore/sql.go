package casestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/logging"
)

// sqlStore holds records in the patients, analyses and interactions tables.
// Every mutation runs in one transaction. Queries are written with ?
// placeholders and rebound for the dialect.
type sqlStore struct {
	db      *sql.DB
	dialect string
	logger  *logrus.Logger
}

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load returns all records
func (s *sqlStore) Load(ctx context.Context) (map[string]*domain.CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symptoms, medical_history, exam_notes
		FROM patients
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*domain.CaseRecord)
	for rows.Next() {
		var id string
		rec := &domain.CaseRecord{}
		if err := rows.Scan(&id, &rec.Symptoms, &rec.MedicalHistory, &rec.ExamNotes); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		rec.Normalize()
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadAnalyses(ctx, records); err != nil {
		return nil, err
	}
	if err := s.loadInteractions(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *sqlStore) loadAnalyses(ctx context.Context, records map[string]*domain.CaseRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, analysis
		FROM analyses
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, analysis string
		if err := rows.Scan(&id, &analysis); err != nil {
			return fmt.Errorf("failed to scan analysis: %w", err)
		}
		if rec, ok := records[id]; ok {
			rec.Analyses = append(rec.Analyses, analysis)
		}
	}
	return rows.Err()
}

func (s *sqlStore) loadInteractions(ctx context.Context, records map[string]*domain.CaseRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, question, answer
		FROM interactions
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var turn domain.Interaction
		if err := rows.Scan(&id, &turn.Question, &turn.Answer); err != nil {
			return fmt.Errorf("failed to scan interaction: %w", err)
		}
		if rec, ok := records[id]; ok {
			rec.Interactions = append(rec.Interactions, turn)
		}
	}
	return rows.Err()
}

// Get returns one record, or nil when absent.
func (s *sqlStore) Get(ctx context.Context, id string) (*domain.CaseRecord, error) {
	rec := &domain.CaseRecord{}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT symptoms, medical_history, exam_notes
		FROM patients
		WHERE id = ?
	`), id).Scan(&rec.Symptoms, &rec.MedicalHistory, &rec.ExamNotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	rec.Normalize()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT analysis FROM analyses WHERE patient_id = ? ORDER BY id
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var analysis string
		if err := rows.Scan(&analysis); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		rec.Analyses = append(rec.Analyses, analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history, err := s.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Interactions = history
	return rec, nil
}

// UpsertIntake creates or updates the intake fields of a record
func (s *sqlStore) UpsertIntake(ctx context.Context, id string, intake domain.Intake, analysis string) error {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO patients (id, symptoms, medical_history, exam_notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				symptoms = excluded.symptoms,
				medical_history = excluded.medical_history,
				exam_notes = excluded.exam_notes,
				updated_at = excluded.updated_at
		`), id, intake.Symptoms, intake.MedicalHistory, intake.ExamNotes, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert patient: %w", err)
		}

		if analysis == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO analyses (patient_id, analysis, created_at) VALUES (?, ?, ?)
		`), id, analysis, now); err != nil {
			return fmt.Errorf("failed to insert analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logWrite("upsert_intake", id)
	return nil
}

// AppendInteraction appends a chat turn, creating a bare patient row when id
// is unknown.
func (s *sqlStore) AppendInteraction(ctx context.Context, id string, turn domain.Interaction) error {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO patients (id, created_at, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET updated_at = excluded.updated_at
		`), id, now, now)
		if err != nil {
			return fmt.Errorf("failed to ensure patient: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO interactions (patient_id, question, answer, created_at) VALUES (?, ?, ?, ?)
		`), id, turn.Question, turn.Answer, now); err != nil {
			return fmt.Errorf("failed to insert interaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logWrite("append_interaction", id)
	return nil
}

// Restore writes rec under id verbatim, replacing any existing rows
func (s *sqlStore) Restore(ctx context.Context, id string, rec *domain.CaseRecord) error {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO patients (id, symptoms, medical_history, exam_notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				symptoms = excluded.symptoms,
				medical_history = excluded.medical_history,
				exam_notes = excluded.exam_notes,
				updated_at = excluded.updated_at
		`), id, rec.Symptoms, rec.MedicalHistory, rec.ExamNotes, now, now)
		if err != nil {
			return fmt.Errorf("failed to restore patient: %w", err)
		}

		for _, table := range []string{"analyses", "interactions"} {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE patient_id = ?`), id); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, analysis := range rec.Analyses {
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO analyses (patient_id, analysis, created_at) VALUES (?, ?, ?)
			`), id, analysis, now); err != nil {
				return fmt.Errorf("failed to restore analysis: %w", err)
			}
		}
		for _, turn := range rec.Interactions {
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO interactions (patient_id, question, answer, created_at) VALUES (?, ?, ?, ?)
			`), id, turn.Question, turn.Answer, now); err != nil {
				return fmt.Errorf("failed to restore interaction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logWrite("restore", id)
	return nil
}

// GetHistory returns the transcript of a record
func (s *sqlStore) GetHistory(ctx context.Context, id string) ([]domain.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT question, answer FROM interactions WHERE patient_id = ? ORDER BY id
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	history := []domain.Interaction{}
	for rows.Next() {
		var turn domain.Interaction
		if err := rows.Scan(&turn.Question, &turn.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		history = append(history, turn)
	}
	return history, rows.Err()
}

func (s *sqlStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Warn("Transaction rollback failed")
		}
		return err
	}
	return tx.Commit()
}

// Close closes the underlying database
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) logWrite(op, id string) {
	s.logger.WithFields(logrus.Fields{
		"op":      op,
		"patient": logging.PatientRef(id),
		"dialect": s.dialect,
	}).Debug("Case record written")
}
