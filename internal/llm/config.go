package llm

import "time"

// Config controls queue behavior
type Config struct {
	// Concurrency control
	MaxConcurrent int // Total concurrent generative-service requests

	// Queue sizes
	InteractiveQueueSize int // Requests a caller is waiting on (graph generation, manual evaluation)
	BackgroundQueueSize  int // Timer-driven evaluations

	// Timeouts
	InteractiveTimeout time.Duration
	BackgroundTimeout  time.Duration

	// Circuit breaker
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:        2,
		InteractiveQueueSize: 20,
		BackgroundQueueSize:  100, // every active quest ticks
		InteractiveTimeout:   30 * time.Second,
		BackgroundTimeout:    10 * time.Second,
		BreakerThreshold:     3,
		BreakerCooldown:      time.Minute,
	}
}
