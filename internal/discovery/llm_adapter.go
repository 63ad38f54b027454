package discovery

import (
	"context"

	"rebase/internal/llm"
)

// LLMReasoner adapts a chat backend to the Reasoner contract.
type LLMReasoner struct {
	backend llm.ChatBackend
}

func NewLLMReasoner(backend llm.ChatBackend) *LLMReasoner {
	return &LLMReasoner{backend: backend}
}

// Complete sends history followed by request as a user message.
func (r *LLMReasoner) Complete(ctx context.Context, history []Turn, request string) (string, error) {
	msgs := make([]llm.ChatMessage, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, llm.ChatMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: "user", Content: request})
	return r.backend.Chat(ctx, msgs)
}
