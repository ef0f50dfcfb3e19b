package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/knowledge"
	"github.com/disc-herniation-assistant/internal/llm"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// MockGenerator is a mock implementation of llm.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, prompt string, history []llm.Message) (string, error) {
	args := m.Called(ctx, prompt, history)
	return args.String(0), args.Error(1)
}

// MockMatcher is a mock implementation of KnowledgeMatcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) Lookup(ctx context.Context, question string) (*knowledge.Match, error) {
	args := m.Called(ctx, question)
	match, _ := args.Get(0).(*knowledge.Match)
	return match, args.Error(1)
}

// MockCaseStore is a mock implementation of domain.CaseStore
type MockCaseStore struct {
	mock.Mock
}

func (m *MockCaseStore) Load(ctx context.Context) (map[string]*domain.CaseRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).(map[string]*domain.CaseRecord)
	return records, args.Error(1)
}

func (m *MockCaseStore) Get(ctx context.Context, id string) (*domain.CaseRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*domain.CaseRecord)
	return rec, args.Error(1)
}

func (m *MockCaseStore) UpsertIntake(ctx context.Context, id string, intake domain.Intake, analysis string) error {
	args := m.Called(ctx, id, intake, analysis)
	return args.Error(0)
}

func (m *MockCaseStore) AppendInteraction(ctx context.Context, id string, turn domain.Interaction) error {
	args := m.Called(ctx, id, turn)
	return args.Error(0)
}

func (m *MockCaseStore) Restore(ctx context.Context, id string, rec *domain.CaseRecord) error {
	args := m.Called(ctx, id, rec)
	return args.Error(0)
}

func (m *MockCaseStore) GetHistory(ctx context.Context, id string) ([]domain.Interaction, error) {
	args := m.Called(ctx, id)
	history, _ := args.Get(0).([]domain.Interaction)
	return history, args.Error(1)
}

func (m *MockCaseStore) Close() error {
	return m.Called().Error(0)
}
