// Package llm provides a provider-neutral client for the external text
// classification capability. Providers are plain HTTP clients; timeouts and
// retries live here, callers treat a call as a single boolean outcome.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client sends one completion request and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string `env:"LLM_PROVIDER"   yaml:"provider"`
	Model     string `env:"LLM_MODEL"      yaml:"model"`
	APIKey    string `env:"LLM_API_KEY"    yaml:"api_key"`
	APIURL    string `env:"LLM_API_URL"    yaml:"api_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ErrMissingAPIKey is a configuration-class error: it must surface before
// any batch work starts.
var ErrMissingAPIKey = errors.New("llm: api key is required")

// NewClient builds the provider named in cfg.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
