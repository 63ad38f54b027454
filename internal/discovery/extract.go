package discovery

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Reasoner is the external natural-language step: the preceding
// role-tagged messages plus a request text in, raw text out.
type Reasoner interface {
	Complete(ctx context.Context, history []Turn, request string) (string, error)
}

// Extractor turns recent conversation into an extraction mapping for Merge.
type Extractor struct {
	reasoner  Reasoner
	window    int
	charLimit int
}

// NewExtractor creates an extractor over the last window turns.
func NewExtractor(r Reasoner, window, charLimit int) *Extractor {
	if window <= 0 {
		window = 3
	}
	if charLimit <= 0 {
		charLimit = 200
	}
	return &Extractor{reasoner: r, window: window, charLimit: charLimit}
}

// Extract asks the reasoning step for structured data. A failed call falls
// back to deterministic pattern extraction; unparseable output yields nothing.
func (e *Extractor) Extract(ctx context.Context, history []Turn, d *CollectedBusinessData) map[string]any {
	if len(history) == 0 {
		return map[string]any{}
	}
	recent := LastTurns(history, e.window)
	prompt := buildExtractionPrompt(FormatHistory(recent, e.charLimit), d)

	raw, err := e.reasoner.Complete(ctx, []Turn{{Role: "system", Content: extractionSystemPrompt}}, prompt)
	if err != nil {
		log.Printf("[Discovery] extraction call failed, using pattern fallback: %v", err)
		return MinimalExtraction(recent)
	}

	var out map[string]any
	if err := decodeJSON(raw, &out); err != nil {
		log.Printf("[Discovery] extraction output not valid JSON: %v", err)
		return map[string]any{}
	}
	if out == nil {
		return map[string]any{}
	}
	return out
}

var amountPattern = regexp.MustCompile(`(\d+)\s*m(?:illion)?`)

// MinimalExtraction pulls only explicit budget or cost amounts from the
// last user message.
func MinimalExtraction(recent []Turn) map[string]any {
	var last string
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == "user" {
			last = strings.ToLower(recent[i].Content)
			break
		}
	}
	if last == "" {
		return map[string]any{}
	}

	m := amountPattern.FindStringSubmatch(last)
	if m == nil {
		return map[string]any{}
	}
	amount := fmt.Sprintf("$%sM", m[1])

	switch {
	case strings.Contains(last, "budget"):
		return map[string]any{
			string(ImplementationContext): map[string]any{
				"project_budget": map[string]any{"max_investment": amount},
			},
		}
	case strings.Contains(last, "cost"):
		return map[string]any{
			string(KeyMetrics): map[string]any{
				"operational_costs": map[string]any{"total_annual": amount},
			},
		}
	}
	return map[string]any{}
}
