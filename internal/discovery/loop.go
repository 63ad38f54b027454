package discovery

import (
	"context"
	"fmt"
	"log"
	"time"
)

// categoryTopics is the fixed phrasing used by the deterministic fallback question.
var categoryTopics = map[CategoryID]string{
	BusinessGoals:         "your business goals and objectives",
	Stakeholders:          "key stakeholders and decision makers",
	CurrentProblems:       "current challenges and problems",
	KeyMetrics:            "key metrics and performance indicators",
	ImplementationContext: "implementation context and constraints",
}

const defaultTopic = "your current situation"

// LoopConfig tunes the decision loop.
type LoopConfig struct {
	CompletionThreshold float64
	HistoryCharLimit    int
	MaxHistory          int
	ExtractionWindow    int
	Timeout             time.Duration
}

// DefaultLoopConfig returns the standard thresholds.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		CompletionThreshold: 0.7,
		HistoryCharLimit:    200,
		MaxHistory:          50,
		ExtractionWindow:    3,
		Timeout:             60 * time.Second,
	}
}

// Outcome is the result of one discovery turn.
type Outcome struct {
	Decision           Decision
	Extracted          map[string]any
	Merge              MergeReport
	Completeness       float64
	ProgressPercentage float64
	Confidence         float64
	Missing            []CategoryID
	Fallback           bool
	Reasoning          string
}

// Loop is the turn-by-turn discovery controller.
type Loop struct {
	reasoner  Reasoner
	extractor *Extractor
	cfg       LoopConfig
}

// LoopOption customises a Loop.
type LoopOption func(*loopOptions)

type loopOptions struct {
	extraction Reasoner
}

// WithExtractionReasoner sends extraction calls to r instead of the
// decision reasoner, typically a lower-priority client. A nil r is
// ignored.
func WithExtractionReasoner(r Reasoner) LoopOption {
	return func(o *loopOptions) {
		if r != nil {
			o.extraction = r
		}
	}
}

// NewLoop wires a loop around a reasoning step.
func NewLoop(r Reasoner, cfg LoopConfig, opts ...LoopOption) *Loop {
	o := loopOptions{extraction: r}
	for _, opt := range opts {
		opt(&o)
	}
	def := DefaultLoopConfig()
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = def.CompletionThreshold
	}
	if cfg.HistoryCharLimit <= 0 {
		cfg.HistoryCharLimit = def.HistoryCharLimit
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Loop{
		reasoner:  r,
		extractor: NewExtractor(o.extraction, cfg.ExtractionWindow, cfg.HistoryCharLimit),
		cfg:       cfg,
	}
}

// Run executes one discovery turn against d, mutating it with any merged
// data. It always returns a question or a completion; reasoning failures
// are absorbed by the deterministic fallback.
func (l *Loop) Run(ctx context.Context, history []Turn, d *CollectedBusinessData) Outcome {
	hist := LastTurns(history, l.cfg.MaxHistory)
	prompt := buildDecisionPrompt(FormatHistory(hist, l.cfg.HistoryCharLimit), d)

	dec, err := l.decide(ctx, prompt)
	if err != nil {
		log.Printf("[Discovery] decision step failed, using fallback: %v", err)
		out := l.fallback(d)
		out.Missing = d.MissingCategories()
		return out
	}

	out := Outcome{Decision: dec}
	switch dec.Kind {
	case KindCompletion:
		if dec.Completion.Data != nil {
			out.Merge = d.Merge(dec.Completion.Data)
			out.Extracted = dec.Completion.Data
		}
		out.Confidence = dec.Completion.Confidence
		out.Reasoning = "Discovery complete"
	case KindNextQuestion:
		extractCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
		extracted := l.extractor.Extract(extractCtx, hist, d)
		cancel()
		out.Extracted = extracted
		out.Merge = d.Merge(extracted)
		out.Confidence = 0.8
		out.Reasoning = "Continuing discovery process"
	}
	out.Completeness = d.OverallCompleteness()
	out.ProgressPercentage = out.Completeness * 100
	out.Missing = d.MissingCategories()
	if dec.Kind == KindCompletion && dec.Completion.CompletenessScore == 0 {
		dec.Completion.CompletenessScore = out.Completeness
	}
	return out
}

func (l *Loop) decide(ctx context.Context, prompt string) (Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	raw, err := l.reasoner.Complete(callCtx, []Turn{{Role: "system", Content: decisionSystemPrompt}}, prompt)
	if err != nil {
		return Decision{}, fmt.Errorf("reasoning call: %w", err)
	}
	dec, err := ParseDecision(raw)
	if err != nil {
		return Decision{}, err
	}
	return dec, nil
}

// fallback synthesizes a decision from the model alone.
func (l *Loop) fallback(d *CollectedBusinessData) Outcome {
	completeness := d.OverallCompleteness()
	out := Outcome{
		Completeness:       completeness,
		ProgressPercentage: completeness * 100,
		Fallback:           true,
	}
	if completeness >= l.cfg.CompletionThreshold {
		out.Decision = Decision{
			Kind: KindCompletion,
			Completion: &Completion{
				Data:              d.ToMap(),
				CompletenessScore: completeness,
				Confidence:        0.8,
				Synthesized:       true,
			},
		}
		out.Confidence = 0.8
		out.Reasoning = "Sufficient data collected"
		return out
	}

	topic := defaultTopic
	if missing := d.MissingCategories(); len(missing) > 0 {
		topic = categoryTopics[missing[0]]
	}
	out.Decision = NextQuestion(fmt.Sprintf("Could you tell me more about %s?", topic))
	out.Confidence = 0.6
	out.Reasoning = "Need more information for complete business case"
	return out
}

// Initial produces the opening assistant reply for a new session.
func (l *Loop) Initial(ctx context.Context, message string) string {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()
	raw, err := l.reasoner.Complete(callCtx, []Turn{{Role: "system", Content: initialSystemPrompt}}, buildInitialPrompt(message))
	if err != nil {
		log.Printf("[Discovery] initial response failed, using fallback: %v", err)
		return InitialFallback
	}
	if reply := stripFences(raw); reply != "" {
		return reply
	}
	return InitialFallback
}
