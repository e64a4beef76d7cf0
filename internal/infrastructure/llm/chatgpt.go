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

const defaultChatEndpoint = "https://api.openai.com/v1/chat/completions"

// ChatGPTConfig configures an OpenAI-compatible chat completions endpoint.
type ChatGPTConfig struct {
	Endpoint   string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// ChatGPTProvider implements Provider backed by OpenAI-compatible APIs.
type ChatGPTProvider struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*ChatGPTProvider)(nil)

// NewChatGPTProvider builds a provider from configuration.
func NewChatGPTProvider(cfg ChatGPTConfig) *ChatGPTProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultChatEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ChatGPTProvider{
		endpoint:   endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: client,
	}
}

// Name identifies the provider in logs and errors.
func (c *ChatGPTProvider) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts the prompt as a user message.
func (c *ChatGPTProvider) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" || (c.model == "" && req.Params.Model == "") {
		return "", Failed(c.Name(), 0, fmt.Errorf("chatgpt provider misconfigured"))
	}

	model := req.Params.Model
	if model == "" {
		model = c.model
	}

	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if req.Params.Temperature > 0 {
		payload["temperature"] = req.Params.Temperature
	}
	if req.Params.MaxTokens > 0 {
		payload["max_tokens"] = req.Params.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Failed(c.Name(), 0, fmt.Errorf("marshal chatgpt payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Failed(c.Name(), 0, fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransport(c.Name(), fmt.Errorf("send prompt: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		if isQuotaResponse(resp.StatusCode, raw) {
			return "", QuotaExhausted(c.Name(), resp.StatusCode, cause)
		}
		return "", Failed(c.Name(), resp.StatusCode, cause)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", Failed(c.Name(), resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", Failed(c.Name(), resp.StatusCode, fmt.Errorf("no response from chatgpt"))
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

func isQuotaResponse(status int, raw []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	var body chatErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Error.Code == "insufficient_quota" || body.Error.Type == "insufficient_quota"
}
