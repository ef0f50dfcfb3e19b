// Package llm talks to the generative language backend.
package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Roles accepted by Message.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one entry of the conversation sent with a prompt.
type Message struct {
	Role    string
	Content string
}

// Generator turns a prompt into a completion. History carries the running
// exchange of the session, oldest first, and may be empty.
type Generator interface {
	Complete(ctx context.Context, prompt string, history []Message) (string, error)
}

// ErrEmptyCompletion is returned when the backend answers without choices.
var ErrEmptyCompletion = errors.New("completion has no choices")

// OpenAIClient calls an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient constructs a client from the backend configuration. An
// empty BaseURL targets the public OpenAI API.
func NewOpenAIClient(cfg domain.LLMConfig, httpClient *http.Client) *OpenAIClient {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		oaCfg.HTTPClient = httpClient
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oaCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Complete sends history followed by prompt as the latest user message and
// returns the first choice verbatim.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, history []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		role := m.Role
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			role = RoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: RoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
