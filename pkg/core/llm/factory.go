package llm

import (
	"context"
	"fmt"
)

// Provider names accepted in configuration.
const (
	NameGemini       = "gemini"
	NameGeminiLegacy = "gemini-legacy"
	NameOpenAI       = "openai"
	NameDeepSeek     = "deepseek"
	NameQwen         = "qwen"
)

// Build creates a provider by configured name.
func Build(ctx context.Context, name, apiKey, model string) (Provider, error) {
	switch name {
	case NameGemini:
		return NewGeminiProvider(ctx, apiKey, model)
	case NameGeminiLegacy:
		return NewGeminiLegacyProvider(ctx, apiKey, model)
	case NameOpenAI, NameDeepSeek, NameQwen:
		return NewChatCompletions(name, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Spec describes one provider to build.
type Spec struct {
	Name   string
	APIKey string
	Model  string
}

// NewManagerFromSpecs builds every provider that has credentials and
// returns the manager plus one error per provider that could not be built.
// Missing providers are not fatal; a mode routed to one fails at call time
// and degrades like any other service error.
func NewManagerFromSpecs(ctx context.Context, config Config, specs []Spec) (*Manager, []error) {
	m := NewManager(config, nil)
	var errs []error
	for _, s := range specs {
		if s.APIKey == "" {
			continue
		}
		p, err := Build(ctx, s.Name, s.APIKey, s.Model)
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", s.Name, err))
			continue
		}
		m.Register(s.Name, p)
	}
	return m, errs
}
