package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend calls the Gemini API directly, guarded by a circuit breaker.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	breaker     *CircuitBreaker
}

// NewGeminiBackend creates a Gemini API client for model.
func NewGeminiBackend(ctx context.Context, apiKey, model string, maxTokens int, temperature float64, breaker *CircuitBreaker) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	log.Printf("[Gemini] client ready for model %s", model)
	return &GeminiBackend{
		client:      cli,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: float32(temperature),
		breaker:     breaker,
	}, nil
}

func (g *GeminiBackend) Name() string { return "gemini:" + g.model }

func (g *GeminiBackend) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	system, contents := toGeminiContents(messages)
	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = textContent("user", system)
	}

	var reply string
	call := func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return fmt.Errorf("gemini generate: %w", err)
		}
		reply = strings.TrimSpace(resp.Text())
		return nil
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// toGeminiContents splits system messages into one instruction and maps
// the rest onto user/model contents.
func toGeminiContents(messages []ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant", "model":
			contents = append(contents, textContent("model", m.Content))
		default:
			contents = append(contents, textContent("user", m.Content))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}
