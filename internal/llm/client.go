package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

var requestSeq atomic.Uint64

// Client wraps the queue for easy integration
type Client struct {
	manager  *Manager
	priority Priority
	timeout  time.Duration
	headers  map[string]string
}

// NewClient creates a new queue client
func NewClient(manager *Manager, priority Priority, timeout time.Duration) *Client {
	return &Client{
		manager:  manager,
		priority: priority,
		timeout:  timeout,
	}
}

// WithHeader returns a copy of the client that sends an extra header on every call.
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.headers = make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		cp.headers[k] = v
	}
	cp.headers[key] = value
	return &cp
}

// Call submits a request and waits for the response body.
func (c *Client) Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error) {
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)

	req := &Request{
		ID:         fmt.Sprintf("%s_%d", c.priority, requestSeq.Add(1)),
		Priority:   c.priority,
		Context:    ctx,
		URL:        url,
		Payload:    payload,
		Headers:    c.headers,
		ResponseCh: respCh,
		ErrorCh:    errCh,
		SubmitTime: time.Now(),
		Timeout:    c.timeout,
	}

	if err := c.manager.Submit(req); err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("LLM returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
