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

// ErrQueueFull is returned by Submit when the priority queue has no room.
var ErrQueueFull = errors.New("queue full")

// Manager coordinates all model server requests
type Manager struct {
	criticalQueue   chan *Request
	backgroundQueue chan *Request

	semaphore chan struct{} // limits concurrent requests

	circuitBreaker *CircuitBreaker
	httpClient     *http.Client

	mu      sync.RWMutex
	metrics Metrics

	stopCh chan struct{}
	wg     sync.WaitGroup

	config *Config
}

// NewManager creates a new queue manager and starts its dispatcher.
func NewManager(config *Config, circuitBreaker *CircuitBreaker) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	m := &Manager{
		criticalQueue:   make(chan *Request, config.CriticalQueueSize),
		backgroundQueue: make(chan *Request, config.BackgroundQueueSize),
		semaphore:       make(chan struct{}, config.MaxConcurrent),
		circuitBreaker:  circuitBreaker,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:      10,
				DisableKeepAlives: false,
			},
		},
		metrics: Metrics{
			CurrentQueueDepth: map[Priority]int{
				PriorityCritical:   0,
				PriorityBackground: 0,
			},
		},
		stopCh: make(chan struct{}),
		config: config,
	}

	m.wg.Add(1)
	go m.dispatcher()

	log.Printf("[LLM Queue] Started with %d concurrent slots", config.MaxConcurrent)
	return m
}

// Submit adds a request to the queue (non-blocking with drop behavior)
func (m *Manager) Submit(req *Request) error {
	queue := m.backgroundQueue
	if req.Priority == PriorityCritical {
		queue = m.criticalQueue
	}

	m.mu.Lock()
	if req.Priority == PriorityCritical {
		m.metrics.CriticalEnqueued++
	} else {
		m.metrics.BackgroundEnqueued++
	}
	m.mu.Unlock()

	select {
	case queue <- req:
		m.mu.Lock()
		m.metrics.CurrentQueueDepth[req.Priority] = len(queue)
		m.mu.Unlock()
		return nil

	default:
		m.mu.Lock()
		if req.Priority == PriorityCritical {
			m.metrics.CriticalDropped++
		} else {
			m.metrics.BackgroundDropped++
		}
		m.mu.Unlock()

		log.Printf("[LLM Queue] WARNING: %s queue full, dropping request %s", req.Priority, req.ID)
		return ErrQueueFull
	}
}

// dispatcher selects the next request, critical first.
func (m *Manager) dispatcher() {
	defer m.wg.Done()

	for {
		var req *Request
		var isCritical bool

		select {
		case <-m.stopCh:
			return
		case req = <-m.criticalQueue:
			isCritical = true
		case req = <-m.backgroundQueue:
			// a critical request may have arrived while select picked background
			select {
			case critReq := <-m.criticalQueue:
				m.backgroundQueue <- req
				req = critReq
				isCritical = true
			default:
			}
		}

		// wait for a slot, but stay responsive to shutdown
		select {
		case <-m.stopCh:
			if isCritical {
				m.criticalQueue <- req
			} else {
				m.backgroundQueue <- req
			}
			return
		case m.semaphore <- struct{}{}:
		}

		m.wg.Add(1)
		go m.processRequest(req)
	}
}

// processRequest executes the actual call
func (m *Manager) processRequest(req *Request) {
	defer func() {
		<-m.semaphore
		m.wg.Done()

		m.mu.Lock()
		if req.Priority == PriorityCritical {
			m.metrics.CriticalProcessed++
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

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.config.CriticalTimeout
		if req.Priority == PriorityBackground {
			timeout = m.config.BackgroundTimeout
		}
	}
	ctx, cancel := context.WithTimeout(req.Context, timeout)
	defer cancel()

	resp, err := m.executeHTTPRequest(ctx, req)
	if err != nil {
		log.Printf("[LLM Queue] Request %s failed after %s: %v", req.ID, time.Since(startTime), err)
		req.ErrorCh <- err
		return
	}

	select {
	case req.ResponseCh <- resp:
		log.Printf("[LLM Queue] Request %s completed in %s", req.ID, time.Since(startTime))
	case <-ctx.Done():
		log.Printf("[LLM Queue] Request %s timeout after %s", req.ID, time.Since(startTime))
		req.ErrorCh <- ctx.Err()
	}
}

// executeHTTPRequest performs the POST through the circuit breaker.
func (m *Manager) executeHTTPRequest(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	call := func() error {
		jsonData, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}

		httpResp, err := m.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		resp = &Response{StatusCode: httpResp.StatusCode, Body: body}

		// server-side failures count against the breaker, client errors do not
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server returned status %d", httpResp.StatusCode)
		}
		return nil
	}

	if m.circuitBreaker == nil {
		if err := call(); err != nil && resp == nil {
			return nil, err
		}
		return resp, nil
	}
	if err := m.circuitBreaker.Call(call); err != nil && resp == nil {
		return nil, err
	}
	return resp, nil
}

// GetMetrics returns current queue statistics
func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := m.metrics
	metrics.CurrentQueueDepth = map[Priority]int{
		PriorityCritical:   len(m.criticalQueue),
		PriorityBackground: len(m.backgroundQueue),
	}
	return metrics
}

// Stop gracefully shuts down the queue
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Printf("[LLM Queue] Stopped")
}
