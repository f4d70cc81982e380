package llm

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/genai"

	"github.com/ahrav/go-tactician/internal/ports"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProvider("google", newGoogleProvider)
}

// googleProvider implements CoreLLM against the Gemini API. The API has
// no separate system role, so a system prompt is prepended to the user
// prompt.
type googleProvider struct {
	client *genai.Client
	model  string
}

func newGoogleProvider(config Config) (CoreLLM, error) {
	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &googleProvider{client: client, model: model}, nil
}

// DoRequest sends a generate-content request and returns the response
// text.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	options := parseRequestOptions(opts, p.model)

	finalPrompt := prompt
	if options.system != "" {
		finalPrompt = fmt.Sprintf("System: %s\n\nUser: %s", options.system, prompt)
	}
	contents := []*genai.Content{genai.NewContentFromText(finalPrompt, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{}
	if options.temperature != nil {
		genConfig.Temperature = genai.Ptr(float32(*options.temperature))
	}
	if options.maxTokens > 0 && options.maxTokens <= math.MaxInt32 {
		genConfig.MaxOutputTokens = int32(options.maxTokens)
	}
	if options.jsonMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.model, contents, genConfig)
	if err != nil {
		return "", wrapProviderError("google", "generate_content", 0, err)
	}

	text := resp.Text()
	if text == "" {
		return "", wrapProviderError("google", "generate_content", 0, ports.ErrEmptyResponse)
	}
	return text, nil
}

// Model returns the configured model identifier.
func (p *googleProvider) Model() string { return p.model }
