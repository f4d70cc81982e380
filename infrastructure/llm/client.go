// Package llm abstracts the generative model providers (OpenAI,
// Anthropic, Google) behind a single client with a composable middleware
// chain for rate limiting, timeouts, retries, metrics, and tracing.
// Providers register themselves with the factory registry; application
// code only sees ports.LLMClient.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-tactician/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt and returns the generated text. opts carry
	// provider-tunable parameters; see parseRequestOptions for the
	// recognized keys.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// Config holds everything needed to construct a provider-backed client.
type Config struct {
	// APIKey authenticates against the provider.
	APIKey string

	// Model selects the model; empty uses the provider default.
	Model string

	// BaseURL overrides the provider endpoint. Mostly useful for tests.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client timeout.
	Timeout time.Duration

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client adapts a middleware-wrapped CoreLLM to ports.LLMClient.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient constructs a client for the named provider ("openai",
// "anthropic", "google") with the configured middleware chain applied.
func NewClient(provider string, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", provider, err)
	}

	// First middleware listed becomes the outermost wrapper.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete implements ports.LLMClient.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel implements ports.LLMClient.
func (c *Client) GetModel() string { return c.core.Model() }

// ProviderFactory builds a provider-specific CoreLLM from configuration.
type ProviderFactory func(Config) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProvider adds a provider factory to the registry. Providers
// call this from init.
func RegisterProvider(name string, factory ProviderFactory) {
	providerFactories[name] = factory
}

// requestOptions is the provider-neutral view of a request's tunables.
type requestOptions struct {
	model       string
	maxTokens   int
	temperature *float64
	system      string
	jsonMode    bool
}

// DefaultMaxTokens bounds generation length when the caller does not set
// max_tokens.
const DefaultMaxTokens = 1024

// parseRequestOptions extracts the recognized option keys, falling back
// to defaults: "model" (string), "max_tokens" (int), "temperature"
// (float64), "system" (string), and "response_format" (any value
// requests JSON output on providers that support it).
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	ro := requestOptions{model: defaultModel, maxTokens: DefaultMaxTokens}
	if opts == nil {
		return ro
	}

	if m, ok := opts["model"].(string); ok && m != "" {
		ro.model = m
	}
	if mt, ok := opts["max_tokens"].(int); ok && mt > 0 {
		ro.maxTokens = mt
	}
	if t, ok := opts["temperature"].(float64); ok && t >= 0 && t <= 2 {
		ro.temperature = &t
	}
	if s, ok := opts["system"].(string); ok {
		ro.system = s
	}
	if _, ok := opts["response_format"]; ok {
		ro.jsonMode = true
	}
	return ro
}
