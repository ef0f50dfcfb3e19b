package memory

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSessions bounds the in-process store when no size is configured.
const DefaultMaxSessions = 500

// LRUStore keeps sessions in process memory. When full, the least recently
// used session is forgotten.
type LRUStore struct {
	mu           sync.Mutex
	sessions     *lru.Cache[string, []Exchange]
	maxExchanges int
}

// NewLRUStore creates an in-process store holding at most maxSessions
// sessions of at most maxExchanges recent exchanges each.
func NewLRUStore(maxSessions, maxExchanges int) (*LRUStore, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	cache, err := lru.New[string, []Exchange](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	return &LRUStore{sessions: cache, maxExchanges: windowSize(maxExchanges)}, nil
}

// History returns a copy of the session's exchanges
func (s *LRUStore) History(ctx context.Context, key string) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges, ok := s.sessions.Get(key)
	if !ok {
		return []Exchange{}, nil
	}
	return append([]Exchange(nil), exchanges...), nil
}

// Append adds an exchange to the session, dropping the oldest ones beyond
// the window.
func (s *LRUStore) Append(ctx context.Context, key string, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges, _ := s.sessions.Get(key)
	exchanges = append(exchanges, ex)
	if n := len(exchanges); n > s.maxExchanges {
		exchanges = append([]Exchange(nil), exchanges[n-s.maxExchanges:]...)
	}
	s.sessions.Add(key, exchanges)
	return nil
}

// Reset removes the session
func (s *LRUStore) Reset(ctx context.Context, key string) error {
	s.sessions.Remove(key)
	return nil
}

// Len returns the number of live sessions.
func (s *LRUStore) Len() int {
	return s.sessions.Len()
}

// Close purges all sessions.
func (s *LRUStore) Close() error {
	s.sessions.Purge()
	return nil
}
