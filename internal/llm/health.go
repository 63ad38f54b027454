package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// EndpointStatus describes one health check of an OpenAI-compatible endpoint.
type EndpointStatus struct {
	BaseURL   string        `json:"url"`
	Online    bool          `json:"online"`
	Models    []string      `json:"models"`
	Latency   time.Duration `json:"latency_ns"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// CheckEndpoint checks GET {baseURL}/models and lists the models it serves.
func CheckEndpoint(ctx context.Context, httpClient *http.Client, baseURL string) EndpointStatus {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	res := EndpointStatus{BaseURL: baseURL, CheckedAt: time.Now()}

	models, err := fetchModels(ctx, httpClient, baseURL)
	res.Latency = time.Since(res.CheckedAt)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Online = true
	res.Models = make([]string, 0, len(models))
	for _, m := range models {
		res.Models = append(res.Models, m.Name)
	}
	return res
}

func fetchModels(ctx context.Context, httpClient *http.Client, baseURL string) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var result struct {
		Object string      `json:"object"`
		Data   []ModelInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}
