package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatPreset is a known OpenAI-compatible endpoint.
type ChatPreset struct {
	URL   string
	Model string
}

// ChatPresets lists the chat-completions services the CLI knows by name.
var ChatPresets = map[string]ChatPreset{
	"openai":   {URL: "https://api.openai.com/v1/chat/completions", Model: "gpt-4o-mini"},
	"deepseek": {URL: "https://api.deepseek.com/chat/completions", Model: "deepseek-chat"},
	"qwen":     {URL: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions", Model: "qwen-max"},
}

// ChatCompletionsProvider talks to any OpenAI-compatible
// /chat/completions endpoint.
type ChatCompletionsProvider struct {
	URL         string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

var _ Provider = (*ChatCompletionsProvider)(nil)

// NewChatCompletions builds a provider from a preset name. An empty model
// keeps the preset default.
func NewChatCompletions(preset, apiKey, model string) (*ChatCompletionsProvider, error) {
	ps, ok := ChatPresets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown chat preset %q", preset)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key not set", preset)
	}
	if model == "" {
		model = ps.Model
	}
	return &ChatCompletionsProvider{
		URL:         ps.URL,
		Model:       model,
		APIKey:      apiKey,
		MaxTokens:   4096,
		Temperature: 0.7,
		HTTPClient:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate posts a system and a user message and returns the first choice.
func (p *ChatCompletionsProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       p.Model,
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat api call failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat api returned status %d: %s", res.StatusCode, truncate(string(raw), 300))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat api error: %s (%s)", out.Error.Message, out.Error.Type)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
