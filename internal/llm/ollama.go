package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient handles communication with the Ollama API.
type OllamaClient struct {
	baseURL     string
	httpClient  *http.Client
	model       string
	temperature float64
	numPredict  int
}

// OllamaConfig holds client configuration.
type OllamaConfig struct {
	BaseURL     string        // e.g., "http://localhost:11434"
	Model       string        // e.g., "qwen2.5:7b"
	Timeout     time.Duration // Request timeout
	Temperature float64
	NumPredict  int
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		numPredict:  cfg.NumPredict,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

// GenerateOptions controls generation parameters.
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateResponse is the response from /api/generate.
type GenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count,omitempty"`
}

// Generate sends a prompt to the model and returns its reply.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: &GenerateOptions{
			Temperature: c.temperature,
			NumPredict:  c.numPredict,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Backend: "ollama", Code: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Response == "" && !genResp.Done {
		return "", ErrEmptyResponse
	}

	return genResp.Response, nil
}

// ListModels returns the models available on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Backend: "ollama", Code: resp.StatusCode}
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}

// ModelInfo returns "model @ baseURL".
func (c *OllamaClient) ModelInfo() string {
	return fmt.Sprintf("%s @ %s", c.model, c.baseURL)
}

// Ping checks that the server is up.
func (c *OllamaClient) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}
