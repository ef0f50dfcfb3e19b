package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/knowledge"
	"github.com/disc-herniation-assistant/internal/llm"
	"github.com/disc-herniation-assistant/internal/memory"
)

// SourceGeneration marks answers produced by the generative backend.
const SourceGeneration = "generation"

// KnowledgeMatcher finds a knowledge base answer for a question.
type KnowledgeMatcher interface {
	Lookup(ctx context.Context, question string) (*knowledge.Match, error)
}

// Answer is the reply to a chat turn. Source is the knowledge base that
// produced it, or SourceGeneration.
type Answer struct {
	Text   string `json:"answer"`
	Source string `json:"source"`
}

// Router decides, per question, between a knowledge base answer and a
// generated one.
type Router struct {
	matcher   KnowledgeMatcher
	generator llm.Generator
	logger    *logrus.Logger
}

// NewRouter creates an answer router. A nil matcher disables knowledge base
// lookups.
func NewRouter(matcher KnowledgeMatcher, generator llm.Generator, logger *logrus.Logger) *Router {
	return &Router{
		matcher:   matcher,
		generator: generator,
		logger:    logger,
	}
}

// AnalyzeIntake asks the backend how to proceed with a newly submitted case.
// Knowledge bases are not consulted.
func (r *Router) AnalyzeIntake(ctx context.Context, conv *memory.Conversation, intake domain.Intake) (string, error) {
	prompt := BuildIntakePrompt(intake)
	return r.generate(ctx, conv, prompt, prompt)
}

// AnswerQuestion resolves a chat question. Knowledge sources are tried in
// priority order; the first match is returned as is. Otherwise the backend
// answers from the case context, the prior turns and the question.
func (r *Router) AnswerQuestion(ctx context.Context, conv *memory.Conversation, cc domain.CaseContext, prior []domain.Interaction, question string) (Answer, error) {
	if r.matcher != nil {
		match, err := r.matcher.Lookup(ctx, question)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Answer{}, ctxErr
			}
			r.logger.WithError(err).Warn("Knowledge base unavailable, continuing without it")
		}
		if match != nil {
			return Answer{Text: match.Text, Source: match.Source}, nil
		}
	}

	text, err := r.generate(ctx, conv, BuildChatPrompt(cc, prior, question), question)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text, Source: SourceGeneration}, nil
}

// generate sends prompt with the session's running exchange and, once the
// backend has answered, records input against the completion. Chat prompts
// already carry the persisted turns, so only the bare question is remembered.
func (r *Router) generate(ctx context.Context, conv *memory.Conversation, prompt, input string) (string, error) {
	exchanges, err := conv.History(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Conversation memory unavailable, sending prompt without it")
		exchanges = nil
	}

	history := make([]llm.Message, 0, 2*len(exchanges))
	for _, ex := range exchanges {
		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: ex.Input},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Output},
		)
	}

	completion, err := r.generator.Complete(ctx, prompt, history)
	if err != nil {
		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) {
			err = &domain.GenerationError{Err: err}
		}
		return "", err
	}

	if err := conv.Record(ctx, input, completion); err != nil {
		r.logger.WithError(err).Warn("Failed to record conversation memory")
	}
	return completion, nil
}
