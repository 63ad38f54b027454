package llm

import (
	"context"
	"time"
)

// Priority levels (just 2)
type Priority int

const (
	PriorityCritical   Priority = 0 // User turns
	PriorityBackground Priority = 1 // Extraction and everything else
)

func (p Priority) String() string {
	if p == PriorityCritical {
		return "critical"
	}
	return "background"
}

// Request encapsulates one queued HTTP call to a model server.
type Request struct {
	ID       string
	Priority Priority
	Context  context.Context

	URL     string
	Payload map[string]interface{}
	Headers map[string]string

	// Response handling
	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates model server output
type Response struct {
	StatusCode int
	Body       []byte
}

// Metrics tracks queue performance
type Metrics struct {
	CriticalEnqueued    int64
	CriticalProcessed   int64
	CriticalDropped     int64
	BackgroundEnqueued  int64
	BackgroundProcessed int64
	BackgroundDropped   int64
	CurrentQueueDepth   map[Priority]int
}

// ChatMessage is one role-tagged message sent to a chat backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelInfo is one entry of an OpenAI-compatible /models listing.
type ModelInfo struct {
	Name    string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}
