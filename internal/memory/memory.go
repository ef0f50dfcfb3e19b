// Package memory keeps the running exchange of a patient's chat session so
// the generative backend sees the conversation so far.
package memory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// DefaultMaxExchanges is the session window when none is configured.
const DefaultMaxExchanges = 10

// Exchange is one user input and the completion the backend returned for it.
type Exchange struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Store holds exchanges per session key.
type Store interface {
	History(ctx context.Context, key string) ([]Exchange, error)
	Append(ctx context.Context, key string, ex Exchange) error
	Reset(ctx context.Context, key string) error
	Close() error
}

// Conversation is the memory handle of one patient session.
type Conversation struct {
	key   string
	store Store
}

// NewConversation binds a session key to a store.
func NewConversation(key string, store Store) *Conversation {
	return &Conversation{key: key, store: store}
}

// Key returns the session key.
func (c *Conversation) Key() string {
	return c.key
}

// History returns the exchanges recorded so far, oldest first. A nil
// conversation has no history.
func (c *Conversation) History(ctx context.Context) ([]Exchange, error) {
	if c == nil {
		return nil, nil
	}
	return c.store.History(ctx, c.key)
}

// Record appends an exchange. Recording on a nil conversation is a no-op.
func (c *Conversation) Record(ctx context.Context, input, output string) error {
	if c == nil {
		return nil
	}
	return c.store.Append(ctx, c.key, Exchange{Input: input, Output: output})
}

// Reset forgets the session.
func (c *Conversation) Reset(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Reset(ctx, c.key)
}

// New returns the memory store selected by cfg.Backend.
func New(ctx context.Context, cfg domain.MemoryConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Backend {
	case domain.MemoryInProcess, "":
		return NewLRUStore(cfg.MaxSessions, cfg.MaxExchanges)
	case domain.MemoryRedis:
		return NewRedisStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Backend)
	}
}

func windowSize(maxExchanges int) int {
	if maxExchanges <= 0 {
		return DefaultMaxExchanges
	}
	return maxExchanges
}
