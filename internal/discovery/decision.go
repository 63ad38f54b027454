package discovery

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// DecisionKind tags a parsed reasoning decision.
type DecisionKind int

const (
	KindNextQuestion DecisionKind = iota + 1
	KindCompletion
)

func (k DecisionKind) String() string {
	switch k {
	case KindNextQuestion:
		return "next_question"
	case KindCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Completion is the payload of a completion signal.
type Completion struct {
	// Data is a structured summary to merge, when the step returned one.
	Data map[string]any
	// Narrative is a textual summary, when the step returned one.
	Narrative         string
	CompletenessScore float64
	Confidence        float64
	MissingInfo       []string
	// Synthesized marks a completion built from the model itself rather
	// than returned by the reasoning step; its Data is never re-merged.
	Synthesized bool
}

// Decision is either a next question or a completion signal.
type Decision struct {
	Kind       DecisionKind
	Question   string
	Completion *Completion
}

// NextQuestion builds a question decision.
func NextQuestion(q string) Decision {
	return Decision{Kind: KindNextQuestion, Question: q}
}

// ErrUninterpretable is returned when raw output is neither a question nor a completion.
var ErrUninterpretable = errors.New("reasoning output is neither a question nor a completion")

var (
	fenceOpen     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*")
	fenceClose    = regexp.MustCompile("(?s)\\s*```$")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// decodeJSON decodes possibly fenced JSON, retrying once with trailing
// commas removed.
func decodeJSON(raw string, target any) error {
	body := stripFences(raw)
	err := json.Unmarshal([]byte(body), target)
	if err == nil {
		return nil
	}
	cleaned := trailingComma.ReplaceAllString(body, "$1")
	if cleaned == body {
		return err
	}
	return json.Unmarshal([]byte(cleaned), target)
}

func looksLikeJSON(s string) bool {
	s = stripFences(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

type decisionPayload struct {
	Status            string          `json:"status"`
	Summary           json.RawMessage `json:"summary"`
	CompletenessScore float64         `json:"completeness_score"`
	Confidence        *float64        `json:"confidence"`
	NextQuestion      string          `json:"next_question"`
	MissingInfo       StringOrList    `json:"missing_critical_info"`
}

// ParseDecision turns raw reasoning output into a Decision. Plain text is a
// question; a JSON object must carry status "complete" or a next_question.
func ParseDecision(raw string) (Decision, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Decision{}, ErrUninterpretable
	}

	if !looksLikeJSON(text) {
		return NextQuestion(text), nil
	}

	var p decisionPayload
	if err := decodeJSON(text, &p); err != nil {
		// JSON-shaped but unreadable, and not a question either
		return Decision{}, ErrUninterpretable
	}

	if strings.EqualFold(strings.TrimSpace(p.Status), "complete") {
		c := &Completion{
			CompletenessScore: p.CompletenessScore,
			Confidence:        0.8,
			MissingInfo:       p.MissingInfo,
		}
		if p.Confidence != nil {
			c.Confidence = *p.Confidence
		}
		if len(p.Summary) > 0 {
			var data map[string]any
			var narrative string
			if err := json.Unmarshal(p.Summary, &data); err == nil {
				c.Data = data
			} else if err := json.Unmarshal(p.Summary, &narrative); err == nil {
				c.Narrative = narrative
			}
		}
		return Decision{Kind: KindCompletion, Completion: c}, nil
	}

	if q := strings.TrimSpace(p.NextQuestion); q != "" {
		return NextQuestion(q), nil
	}
	return Decision{}, ErrUninterpretable
}
