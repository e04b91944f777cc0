package chat

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls Gemini through the genai SDK. The API key is read by
// the SDK from GEMINI_API_KEY or GOOGLE_API_KEY.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiProvider: create genai client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Generate sends the prompt as a single user turn and returns the model's
// text, trimmed. An empty answer is not an error here.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiProvider.Generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

var _ ModelProvider = (*GeminiProvider)(nil)
