package llm

import (
	"context"
	"fmt"
	"strings"

	legacy "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLegacyProvider calls Gemini through the older
// github.com/google/generative-ai-go SDK. Some deployments pin it for its
// safety-setting defaults.
type GeminiLegacyProvider struct {
	client *legacy.Client
	Model  string
}

var _ Provider = (*GeminiLegacyProvider)(nil)

// NewGeminiLegacyProvider opens a client authenticated by API key.
func NewGeminiLegacyProvider(ctx context.Context, apiKey, model string) (*GeminiLegacyProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := legacy.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiLegacyProvider{client: client, Model: model}, nil
}

// Generate runs a single-turn request and joins the text parts of the first
// candidate.
func (p *GeminiLegacyProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.Model)
	model.SetTemperature(0.2)
	if system != "" {
		model.SystemInstruction = &legacy.Content{Parts: []legacy.Part{legacy.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, legacy.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(legacy.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// Close releases the underlying connection.
func (p *GeminiLegacyProvider) Close() error {
	return p.client.Close()
}
