package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChatBackend sends a role-tagged conversation to a model and returns its reply text.
type ChatBackend interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	Name() string
}

// ErrEmptyReply is returned when a backend answers without any content.
var ErrEmptyReply = errors.New("model returned no content")

// OpenAIBackend talks to any OpenAI-compatible chat/completions endpoint
// through the priority queue.
type OpenAIBackend struct {
	client      *Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIBackend builds a backend posting to baseURL + "/chat/completions".
func NewOpenAIBackend(client *Client, baseURL, model string, maxTokens int, temperature float64) *OpenAIBackend {
	return &OpenAIBackend{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (b *OpenAIBackend) Name() string { return "openai:" + b.model }

func (b *OpenAIBackend) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	msgs := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}
	payload := map[string]interface{}{
		"model":       b.model,
		"messages":    msgs,
		"temperature": b.temperature,
		"max_tokens":  b.maxTokens,
		"stream":      false,
	}

	body, err := b.client.Call(ctx, b.baseURL+"/chat/completions", payload)
	if err != nil {
		return "", err
	}
	return parseChatCompletion(body)
}

func parseChatCompletion(body []byte) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyReply
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}
