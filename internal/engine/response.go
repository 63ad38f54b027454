package engine

import (
	"time"

	"rebase/internal/discovery"
	"rebase/internal/phase"
)

// StartResult answers StartConversation.
type StartResult struct {
	SessionID  string      `json:"session_id"`
	Response   string      `json:"response"`
	Phase      phase.Phase `json:"phase"`
	Progress   float64     `json:"progress"`
	DomainType string      `json:"domain_type"`
}

// Response is the reply to one turn.
type Response struct {
	SessionID             string             `json:"session_id"`
	Message               string             `json:"message"`
	SuggestedResponses    []string           `json:"suggested_responses"`
	CurrentPhase          phase.Phase        `json:"current_phase"`
	ProgressPercentage    float64            `json:"progress_percentage"`
	MissingCriticalInfo   []string           `json:"missing_critical_info"`
	ExtractionConfidence  float64            `json:"extraction_confidence"`
	CollectedData         map[string]any     `json:"collected_data,omitempty"`
	DiscoverySummary      *discovery.Summary `json:"discovery_summary,omitempty"`
	DataCompleteness      float64            `json:"data_completeness"`
	NextQuestionReasoning string             `json:"next_question_reasoning"`
	ActionRequired        string             `json:"action_required,omitempty"`
	StructuredData        map[string]any     `json:"structured_data,omitempty"`
}

// ConversationSummary describes a session's state.
type ConversationSummary struct {
	SessionID          string            `json:"session_id"`
	DomainType         string            `json:"domain_type"`
	CurrentPhase       phase.Phase       `json:"current_phase"`
	ProgressPercentage float64           `json:"progress_percentage"`
	DiscoverySummary   discovery.Summary `json:"discovery_summary"`
	DataCompleteness   float64           `json:"data_completeness"`
	MissingCategories  []string          `json:"missing_categories"`
	ConversationLength int               `json:"conversation_length"`
	StartedAt          time.Time         `json:"started_at"`
	LastUpdated        time.Time         `json:"last_updated"`
	BusinessMetrics    map[string]any    `json:"business_metrics,omitempty"`
}

// TransitionResult reports an administrative phase change.
type TransitionResult struct {
	SessionID string      `json:"session_id"`
	From      phase.Phase `json:"from"`
	To        phase.Phase `json:"to"`
	Forced    bool        `json:"forced"`
}

// ProjectSummary is one entry of a user's project list.
type ProjectSummary struct {
	SessionID          string      `json:"session_id"`
	Title              string      `json:"title"`
	DomainType         string      `json:"domain_type"`
	CurrentPhase       phase.Phase `json:"current_phase"`
	ProgressPercentage float64     `json:"progress_percentage"`
	CreatedAt          time.Time   `json:"created_at"`
	LastUpdated        time.Time   `json:"last_updated"`
}
