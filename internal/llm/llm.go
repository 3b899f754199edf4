package llm

import (
	"context"
	"fmt"
	"strings"
)

type Message struct {
	Role    string
	Content string
}

// Client is the minimal chat-completion surface the orchestrator needs from
// any language-model provider.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL   string
	maxTokens int
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithMaxTokens caps the completion length for providers that require an
// explicit limit. Zero means the provider default.
func WithMaxTokens(n int) Option {
	return func(o *clientOptions) {
		o.maxTokens = n
	}
}

// ParseModel splits a "provider/model_name" string into its parts.
func ParseModel(model string) (provider, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider/model_name", model)
	}
	return parts[0], parts[1], nil
}

func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: supported providers are openai, anthropic, gemini", provider)
	}
}
