package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Topic is a knowledge base key and the phrase that selects it.
type Topic struct {
	ID      string
	Trigger string
}

// DefaultTopics is the topic set used when none is configured.
var DefaultTopics = []Topic{{ID: "hernia_de_disco", Trigger: "hernia de disco"}}

// TopicsFromConfig converts configured topics. An empty trigger defaults to
// the id with underscores read as spaces.
func TopicsFromConfig(cfg []domain.TopicConfig) []Topic {
	if len(cfg) == 0 {
		return DefaultTopics
	}
	topics := make([]Topic, 0, len(cfg))
	for _, tc := range cfg {
		trigger := tc.Trigger
		if strings.TrimSpace(trigger) == "" {
			trigger = strings.ReplaceAll(tc.ID, "_", " ")
		}
		topics = append(topics, Topic{ID: tc.ID, Trigger: strings.ToLower(trigger)})
	}
	return topics
}

// Match is a knowledge base answer.
type Match struct {
	Source  string
	TopicID string
	Text    string
}

// Matcher resolves questions against knowledge sources in priority order.
type Matcher struct {
	reader  *Reader
	sources []string
	topics  []Topic
	logger  *logrus.Logger
}

// NewMatcher creates a matcher over sources, highest priority first
func NewMatcher(reader *Reader, sources []string, topics []Topic, logger *logrus.Logger) *Matcher {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &Matcher{
		reader:  reader,
		sources: sources,
		topics:  topics,
		logger:  logger,
	}
}

// Sources returns the configured sources in priority order.
func (m *Matcher) Sources() []string {
	return append([]string(nil), m.sources...)
}

// Lookup returns the answer of the first source whose document holds a topic
// whose trigger occurs in the lower-cased question, or nil when none does.
// Unreadable sources are skipped; their errors are joined into the returned
// error, which never prevents a later source from matching.
func (m *Matcher) Lookup(ctx context.Context, question string) (*Match, error) {
	q := strings.ToLower(question)

	var errs []error
	for _, source := range m.sources {
		kb, err := m.reader.Load(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}

		for _, topic := range m.topics {
			entry, ok := kb[topic.ID]
			if !ok || !strings.Contains(q, topic.Trigger) {
				continue
			}
			m.logger.WithFields(logrus.Fields{
				"source": source,
				"topic":  topic.ID,
			}).Debug("Question answered from knowledge base")
			return &Match{
				Source:  source,
				TopicID: topic.ID,
				Text:    FormatSummary(entry),
			}, errors.Join(errs...)
		}
	}

	return nil, errors.Join(errs...)
}

// FormatSummary renders an entry as the multi-field answer shown to patients.
func FormatSummary(entry domain.KnowledgeEntry) string {
	return fmt.Sprintf(
		"Definição: %s\nCausas: %s\nSintomas: %s\nTratamentos: %s\nPrevenção: %s\nDiagnóstico: %s",
		entry.Definition,
		strings.Join(entry.Causes, ", "),
		strings.Join(entry.Symptoms, ", "),
		strings.Join(entry.Treatments, ", "),
		strings.Join(entry.Prevention, ", "),
		entry.Diagnosis,
	)
}
