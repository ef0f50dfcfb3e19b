package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/logging"
	"github.com/disc-herniation-assistant/internal/memory"
)

// Messages shown around the chat transcript.
const (
	GreetingMessage = "Olá! Como posso ajudá-lo hoje?"
	welcomeFormat   = "Bem-vindo de volta, %s!"
)

// Transcript is what a chat view shows for a patient.
type Transcript struct {
	Known        bool                 `json:"known"`
	Welcome      string               `json:"welcome,omitempty"`
	Greeting     string               `json:"greeting,omitempty"`
	Interactions []domain.Interaction `json:"interactions"`
}

// Session runs the intake and chat workflow of each patient: one store read,
// at most one backend call, then at most one store write.
type Session struct {
	store         domain.CaseStore
	router        *Router
	memory        memory.Store
	requireIntake bool
	redactor      logging.Redactor
	logger        *logrus.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRequireIntakeForChat makes chat turns for unknown patients fail with
// domain.ErrPatientNotFound instead of creating a transcript-only record.
func WithRequireIntakeForChat(require bool) SessionOption {
	return func(s *Session) {
		s.requireIntake = require
	}
}

// WithRedactor sets how patient identifiers appear in logs.
func WithRedactor(r logging.Redactor) SessionOption {
	return func(s *Session) {
		s.redactor = r
	}
}

// NewSession creates the workflow. mem may be nil, in which case the backend
// only sees the persisted transcript.
func NewSession(store domain.CaseStore, router *Router, mem memory.Store, logger *logrus.Logger, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		router:   router,
		memory:   mem,
		redactor: logging.NewRedactor(true),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) conversation(name string) *memory.Conversation {
	if s.memory == nil {
		return nil
	}
	return memory.NewConversation(name, s.memory)
}

func (s *Session) log(name string) *logrus.Entry {
	return s.logger.WithField("patient", s.redactor.PatientRef(name))
}

func validateRequired(field, value string) error {
	if domain.Blank(value) {
		return domain.NewValidationError(field, "must not be blank", nil)
	}
	return nil
}

// SubmitIntake records a patient's intake and returns the backend's analysis.
// Nothing is written when the analysis fails.
func (s *Session) SubmitIntake(ctx context.Context, name, symptoms, history, exams string) (string, error) {
	if err := validateRequired("name", name); err != nil {
		return "", err
	}
	if err := validateRequired("symptoms", symptoms); err != nil {
		return "", err
	}

	existing, err := s.store.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("loading patient: %w", err)
	}

	intake := domain.Intake{Symptoms: symptoms, MedicalHistory: history, ExamNotes: exams}
	analysis, err := s.router.AnalyzeIntake(ctx, s.conversation(name), intake)
	if err != nil {
		s.log(name).WithError(err).Warn("Intake analysis failed")
		return "", err
	}

	if err := s.store.UpsertIntake(ctx, name, intake, analysis); err != nil {
		return "", fmt.Errorf("saving intake: %w", err)
	}

	s.log(name).WithFields(logrus.Fields{
		"returning":    existing != nil,
		"analysis_len": len(analysis),
	}).Info("Intake recorded")
	return analysis, nil
}

// SubmitChatTurn answers a question and appends the turn to the transcript.
// Nothing is written when generation fails.
func (s *Session) SubmitChatTurn(ctx context.Context, name, question string) (Answer, error) {
	if err := validateRequired("name", name); err != nil {
		return Answer{}, err
	}
	if err := validateRequired("question", question); err != nil {
		return Answer{}, err
	}

	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return Answer{}, fmt.Errorf("loading patient: %w", err)
	}
	if rec == nil && s.requireIntake {
		return Answer{}, fmt.Errorf("chat turn: %w", domain.ErrPatientNotFound)
	}

	var prior []domain.Interaction
	if rec != nil {
		prior = rec.Interactions
	}

	answer, err := s.router.AnswerQuestion(ctx, s.conversation(name), rec.Context(), prior, question)
	if err != nil {
		s.log(name).WithError(err).Warn("Chat turn failed")
		return Answer{}, err
	}

	turn := domain.Interaction{Question: question, Answer: answer.Text}
	if err := s.store.AppendInteraction(ctx, name, turn); err != nil {
		return Answer{}, fmt.Errorf("saving chat turn: %w", err)
	}

	s.log(name).WithFields(logrus.Fields{
		"source":     answer.Source,
		"turn":       len(prior) + 1,
		"answer_len": len(answer.Text),
	}).Info("Chat turn recorded")
	return answer, nil
}

// GetDisplayRecord returns the stored record, or nil when the patient is
// unknown.
func (s *Session) GetDisplayRecord(ctx context.Context, name string) (*domain.CaseRecord, error) {
	if err := validateRequired("name", name); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	return rec, nil
}

// Transcript returns the chat view of a patient. Known patients get a welcome
// line; an empty transcript gets the greeting.
func (s *Session) Transcript(ctx context.Context, name string) (*Transcript, error) {
	rec, err := s.GetDisplayRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil && s.requireIntake {
		return nil, fmt.Errorf("transcript: %w", domain.ErrPatientNotFound)
	}

	t := &Transcript{Interactions: []domain.Interaction{}}
	if rec != nil {
		t.Known = true
		t.Welcome = fmt.Sprintf(welcomeFormat, name)
		t.Interactions = rec.Interactions
	}
	if len(t.Interactions) == 0 {
		t.Greeting = GreetingMessage
	}
	return t, nil
}
