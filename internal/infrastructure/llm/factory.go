package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Config selects and configures a provider by name.
type Config struct {
	Provider   string
	Endpoint   string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// New builds the named provider: anthropic, openai or inference.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Endpoint,
			Model:      cfg.Model,
			HTTPClient: cfg.HTTPClient,
		}), nil
	case "openai", "chatgpt":
		return NewChatGPTProvider(ChatGPTConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			HTTPClient: cfg.HTTPClient,
		}), nil
	case "inference":
		return NewInferenceProvider(InferenceConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			HTTPClient: cfg.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
