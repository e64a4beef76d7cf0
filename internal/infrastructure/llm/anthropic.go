package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// statusOverloaded is returned by the Messages API when capacity is exhausted.
const statusOverloaded = 529

// AnthropicConfig configures the Messages API provider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// AnthropicProvider calls the Messages API through the official SDK.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider builds the provider. SDK retries are disabled; the
// summarizer owns the retry policy.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeHaiku4_5)
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), model: model}
}

// Name identifies the provider in logs and errors.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Generate sends a single user message.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Params.Model
	if model == "" {
		model = p.model
	}
	maxTokens := int64(req.Params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Params.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Params.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == statusOverloaded {
				return "", QuotaExhausted(p.Name(), apiErr.StatusCode, err)
			}
			return "", Failed(p.Name(), apiErr.StatusCode, err)
		}
		return "", classifyTransport(p.Name(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", Failed(p.Name(), 0, fmt.Errorf("empty response"))
	}
	return text, nil
}
