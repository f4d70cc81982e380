package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-tactician/internal/ports"
)

// AnthropicDefaultModel is used when no model is configured.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterProvider("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM against the Anthropic Messages
// API. JSON mode is approximated through prompt instructions since the
// API has no response-format parameter.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(config Config) (CoreLLM, error) {
	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// DoRequest sends a message request and concatenates the text blocks of
// the response.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	options := parseRequestOptions(opts, p.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.model),
		MaxTokens: int64(options.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if options.temperature != nil {
		params.Temperature = anthropic.Float(*options.temperature)
	}
	if options.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.system}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", wrapProviderError("anthropic", "messages_new", status, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", wrapProviderError("anthropic", "messages_new", 0, ports.ErrEmptyResponse)
	}
	return text.String(), nil
}

// Model returns the configured model identifier.
func (p *anthropicProvider) Model() string { return p.model }
