package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/courseloop/courseloop-backend/internal/config"
)

// ExecuteRequest is the payload sent to the external code-execution service.
type ExecuteRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// ExecuteResult is the outcome of one code execution.
type ExecuteResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Client talks to the external run-code service. The service is an opaque
// collaborator; this client does no sandboxing or queueing of its own.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a runner client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.RunnerURL,
		http:    &http.Client{Timeout: cfg.RunnerTimeout},
	}
}

// Execute runs code against the external service and returns its output.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call runner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runner returned status %d after %s", resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	var result ExecuteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode runner response: %w", err)
	}
	return &result, nil
}
