// Package app assembles the case store, knowledge bases, generative backend
// and conversation memory into the patient workflow shared by every binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/casestore"
	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/knowledge"
	"github.com/disc-herniation-assistant/internal/llm"
	"github.com/disc-herniation-assistant/internal/logging"
	"github.com/disc-herniation-assistant/internal/memory"
	"github.com/disc-herniation-assistant/internal/service"
)

// App owns the long-lived dependencies of the workflow.
type App struct {
	Store   domain.CaseStore
	Memory  memory.Store
	Session *service.Session
	logger  *logrus.Logger
}

// Option overrides a dependency, mainly for tests.
type Option func(*options)

type options struct {
	generator llm.Generator
}

// WithGenerator replaces the OpenAI-backed generator.
func WithGenerator(g llm.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// New opens the configured store and memory and builds the session. The
// caller must Close the returned App.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := casestore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open case store: %w", err)
	}

	mem, err := memory.New(ctx, cfg.Memory, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open conversation memory: %w", err)
	}

	generator := o.generator
	if generator == nil {
		client := llm.NewOpenAIClient(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
		generator = llm.NewResilientGenerator(client, cfg.LLM, logger)
	}

	matcher := knowledge.NewMatcher(
		knowledge.NewReader(logger),
		cfg.Knowledge.Sources,
		knowledge.TopicsFromConfig(cfg.Knowledge.Topics),
		logger,
	)

	session := service.NewSession(store, service.NewRouter(matcher, generator, logger), mem, logger,
		service.WithRequireIntakeForChat(cfg.Session.RequireIntakeForChat),
		service.WithRedactor(logging.NewRedactor(cfg.Logging.RedactPatient)),
	)

	logger.WithFields(logrus.Fields{
		"storage":        cfg.Storage.Backend,
		"memory":         cfg.Memory.Backend,
		"model":          cfg.LLM.Model,
		"knowledge_srcs": len(cfg.Knowledge.Sources),
	}).Info("Patient workflow ready")

	return &App{
		Store:   store,
		Memory:  mem,
		Session: session,
		logger:  logger,
	}, nil
}

// Close releases the store and the memory backend.
func (a *App) Close() error {
	return errors.Join(a.Memory.Close(), a.Store.Close())
}
