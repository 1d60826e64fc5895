package llm

import (
	"context"
	"time"
)

// Priority levels (just 2)
type Priority int

const (
	PriorityInteractive Priority = 0 // A caller is waiting
	PriorityBackground  Priority = 1 // Timer-driven evaluations
)

func (p Priority) String() string {
	if p == PriorityInteractive {
		return "interactive"
	}
	return "background"
}

// Request encapsulates a generative-service call
type Request struct {
	ID       string
	Priority Priority
	Context  context.Context

	URL     string
	Payload map[string]interface{}

	// Response handling
	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates the service output
type Response struct {
	StatusCode int
	Body       []byte
}

// Metrics tracks queue performance
type Metrics struct {
	InteractiveEnqueued  int64            `json:"interactive_enqueued"`
	InteractiveProcessed int64            `json:"interactive_processed"`
	InteractiveDropped   int64            `json:"interactive_dropped"`
	BackgroundEnqueued   int64            `json:"background_enqueued"`
	BackgroundProcessed  int64            `json:"background_processed"`
	BackgroundDropped    int64            `json:"background_dropped"`
	CurrentQueueDepth    map[Priority]int `json:"current_queue_depth"`
}
