package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("llm queue full")
	ErrBadStatus = errors.New("llm returned non-200 status")
)

// Manager coordinates all generative-service requests
type Manager struct {
	interactiveQueue chan *Request
	backgroundQueue  chan *Request

	semaphore chan struct{} // Limit concurrent requests
	breaker   *CircuitBreaker
	http      *http.Client

	mu      sync.RWMutex
	metrics Metrics

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a new queue manager and starts its dispatcher
func NewManager(config *Config, breaker *CircuitBreaker) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Manager{
		interactiveQueue: make(chan *Request, config.InteractiveQueueSize),
		backgroundQueue:  make(chan *Request, config.BackgroundQueueSize),
		semaphore:        make(chan struct{}, config.MaxConcurrent),
		breaker:          breaker,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		metrics: Metrics{
			CurrentQueueDepth: map[Priority]int{
				PriorityInteractive: 0,
				PriorityBackground:  0,
			},
		},
		stopCh: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.dispatcher()

	log.Printf("[LLM Queue] Started with %d concurrent slots", config.MaxConcurrent)
	return m
}

// Submit adds a request to the queue (non-blocking with drop behavior)
func (m *Manager) Submit(req *Request) error {
	queue := m.backgroundQueue
	if req.Priority == PriorityInteractive {
		queue = m.interactiveQueue
	}

	m.mu.Lock()
	if req.Priority == PriorityInteractive {
		m.metrics.InteractiveEnqueued++
	} else {
		m.metrics.BackgroundEnqueued++
	}
	m.mu.Unlock()

	select {
	case queue <- req:
		return nil
	default:
		m.mu.Lock()
		if req.Priority == PriorityInteractive {
			m.metrics.InteractiveDropped++
		} else {
			m.metrics.BackgroundDropped++
		}
		m.mu.Unlock()

		log.Printf("[LLM Queue] WARNING: %s queue full, dropping request %s", req.Priority, req.ID)
		return ErrQueueFull
	}
}

// dispatcher selects the next request, interactive first
func (m *Manager) dispatcher() {
	defer m.wg.Done()

	for {
		var req *Request

		select {
		case <-m.stopCh:
			return
		case req = <-m.interactiveQueue:
		case req = <-m.backgroundQueue:
			// An interactive request may have arrived while select picked background
			select {
			case inter := <-m.interactiveQueue:
				m.requeue(req)
				req = inter
			default:
			}
		}

		// Wait for a slot, but stay responsive to shutdown
		select {
		case <-m.stopCh:
			req.ErrorCh <- fmt.Errorf("llm queue stopped")
			return
		case m.semaphore <- struct{}{}:
		}

		m.wg.Add(1)
		go m.processRequest(req)
	}
}

func (m *Manager) requeue(req *Request) {
	select {
	case m.backgroundQueue <- req:
	default:
		req.ErrorCh <- ErrQueueFull
	}
}

// processRequest executes the actual call
func (m *Manager) processRequest(req *Request) {
	defer func() {
		<-m.semaphore // Release slot
		m.wg.Done()

		m.mu.Lock()
		if req.Priority == PriorityInteractive {
			m.metrics.InteractiveProcessed++
		} else {
			m.metrics.BackgroundProcessed++
		}
		m.mu.Unlock()
	}()

	startTime := time.Now()

	if req.Context.Err() != nil {
		req.ErrorCh <- req.Context.Err()
		return
	}

	ctx, cancel := context.WithTimeout(req.Context, req.Timeout)
	defer cancel()

	var resp *Response
	err := m.callThroughBreaker(func() error {
		var callErr error
		resp, callErr = m.executeHTTPRequest(ctx, req)
		return callErr
	})
	if err != nil {
		log.Printf("[LLM Queue] Request %s failed after %s: %v", req.ID, time.Since(startTime), err)
		req.ErrorCh <- err
		return
	}

	req.ResponseCh <- resp
	log.Printf("[LLM Queue] Request %s completed in %s", req.ID, time.Since(startTime))
}

func (m *Manager) callThroughBreaker(fn func() error) error {
	if m.breaker == nil {
		return fn()
	}
	return m.breaker.Call(fn)
}

// executeHTTPRequest performs the HTTP call. 5xx responses count as failures.
func (m *Manager) executeHTTPRequest(ctx context.Context, req *Request) (*Response, error) {
	jsonData, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrBadStatus, httpResp.StatusCode)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

// Breaker returns the circuit breaker, or nil
func (m *Manager) Breaker() *CircuitBreaker {
	return m.breaker
}

// GetMetrics returns current queue statistics
func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := m.metrics
	metrics.CurrentQueueDepth = map[Priority]int{
		PriorityInteractive: len(m.interactiveQueue),
		PriorityBackground:  len(m.backgroundQueue),
	}
	return metrics
}

// Stop gracefully shuts down the queue
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Printf("[LLM Queue] Stopped")
}
