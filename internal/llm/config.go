package llm

import "time"

// Config controls queue behavior
type Config struct {
	// Concurrency control
	MaxConcurrent int

	// Queue sizes
	CriticalQueueSize   int // user turns, rarely queues
	BackgroundQueueSize int

	CriticalTimeout   time.Duration
	BackgroundTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:       2,
		CriticalQueueSize:   20,
		BackgroundQueueSize: 100,
		CriticalTimeout:     60 * time.Second,
		BackgroundTimeout:   120 * time.Second,
	}
}
