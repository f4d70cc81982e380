package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when no model is configured.
const OpenAIDefaultModel = "gpt-4-turbo-preview"

func init() {
	RegisterProvider("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM against OpenAI's chat completion API.
type openAIProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(config Config) (CoreLLM, error) {
	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// DoRequest sends a chat completion request and returns the first
// choice's content.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	options := parseRequestOptions(opts, p.model)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.model,
		Messages:  messages,
		MaxTokens: options.maxTokens,
	}
	if options.temperature != nil {
		req.Temperature = float32(*options.temperature)
	}
	if options.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		return "", wrapProviderError("openai", "chat_completion", status, err)
	}
	if len(resp.Choices) == 0 {
		return "", wrapProviderError("openai", "chat_completion", 0, ErrNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model identifier.
func (p *openAIProvider) Model() string { return p.model }
