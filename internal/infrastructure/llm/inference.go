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

// InferenceConfig configures a generic JSON inference endpoint.
type InferenceConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// InferenceProvider talks to a self-hosted inference service that accepts
// {prompt, model, parameters} and answers {result}.
type InferenceProvider struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ Provider = (*InferenceProvider)(nil)

// NewInferenceProvider creates a reusable HTTP client.
func NewInferenceProvider(cfg InferenceConfig) *InferenceProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &InferenceProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     client,
	}
}

// Name identifies the provider in logs and errors.
func (c *InferenceProvider) Name() string {
	return "inference"
}

type inferencePayload struct {
	Prompt     string         `json:"prompt"`
	System     string         `json:"system,omitempty"`
	Model      string         `json:"model,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Generate requests a completion for the prompt.
func (c *InferenceProvider) Generate(ctx context.Context, req Request) (string, error) {
	if c.endpoint == "" {
		return "", Failed(c.Name(), 0, fmt.Errorf("inference endpoint is not configured"))
	}

	payload := inferencePayload{
		Prompt: req.Prompt,
		System: req.System,
		Model:  req.Params.Model,
	}
	if payload.Model == "" {
		payload.Model = c.model
	}
	params := map[string]any{}
	if req.Params.Temperature > 0 {
		params["temperature"] = req.Params.Temperature
	}
	if req.Params.MaxTokens > 0 {
		params["max_tokens"] = req.Params.MaxTokens
	}
	if len(params) > 0 {
		payload.Parameters = params
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := c.post(ctx, "/generate", payload, &resp); err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Result)
	if text == "" {
		return "", Failed(c.Name(), http.StatusOK, fmt.Errorf("empty result"))
	}
	return text, nil
}

func (c *InferenceProvider) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failed(c.Name(), 0, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return Failed(c.Name(), 0, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(c.Name(), fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		cause := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return QuotaExhausted(c.Name(), resp.StatusCode, cause)
		}
		return Failed(c.Name(), resp.StatusCode, cause)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return Failed(c.Name(), resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
