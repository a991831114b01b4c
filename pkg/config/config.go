// Package config loads runtime settings: secrets from the environment (and
// an optional .env file), everything else from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"sales_insight/pkg/core/llm"
	"sales_insight/pkg/core/pipeline"
)

// DefaultPath is where the CLI looks for the YAML file.
const DefaultPath = "config/insight.yaml"

// Config is the merged file and environment configuration.
type Config struct {
	ActiveProvider string                    `yaml:"active_provider"`
	Models         map[string]string         `yaml:"models"`
	Modes          map[string]llm.ModeConfig `yaml:"modes"`
	Locale         string                    `yaml:"locale"`
	Narrative      Narrative                 `yaml:"narrative"`
	Subjects       []string                  `yaml:"subjects"`

	DatabaseURL string            `yaml:"-"`
	APIKeys     map[string]string `yaml:"-"`
}

// Narrative overrides validator defaults. Zero values keep the default.
type Narrative struct {
	SalesMentionCap int      `yaml:"sales_mention_cap"`
	StockMentionCap int      `yaml:"stock_mention_cap"`
	Units           []string `yaml:"units"`
}

// keyEnv maps provider names to the variable holding their key.
var keyEnv = map[string]string{
	llm.NameGemini:       "GEMINI_API_KEY",
	llm.NameGeminiLegacy: "GEMINI_API_KEY",
	llm.NameOpenAI:       "OPENAI_API_KEY",
	llm.NameDeepSeek:     "DEEPSEEK_API_KEY",
	llm.NameQwen:         "DASHSCOPE_API_KEY",
}

// providerOrder fixes the order providers are built in.
var providerOrder = []string{llm.NameGemini, llm.NameGeminiLegacy, llm.NameOpenAI, llm.NameDeepSeek, llm.NameQwen}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ActiveProvider: llm.NameGemini,
		Models:         map[string]string{llm.NameGemini: llm.DefaultGeminiModel},
		Modes:          map[string]llm.ModeConfig{},
		Locale:         "en",
		APIKeys:        map[string]string{},
	}
}

// Load reads .env (if present), then path (if present), then the
// environment. A missing YAML file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.APIKeys == nil {
		c.APIKeys = map[string]string{}
	}
	for name, env := range keyEnv {
		if v := os.Getenv(env); v != "" {
			c.APIKeys[name] = v
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("INSIGHT_PROVIDER"); v != "" {
		c.ActiveProvider = v
	}
	if v := os.Getenv("INSIGHT_LOCALE"); v != "" {
		c.Locale = v
	}
}

// LLM returns the provider selection.
func (c Config) LLM() llm.Config {
	return llm.Config{ActiveProvider: c.ActiveProvider, Modes: c.Modes}
}

// ProviderSpecs lists every provider in a fixed order with its key and model.
func (c Config) ProviderSpecs() []llm.Spec {
	specs := make([]llm.Spec, 0, len(providerOrder))
	for _, name := range providerOrder {
		specs = append(specs, llm.Spec{Name: name, APIKey: c.APIKeys[name], Model: c.Models[name]})
	}
	return specs
}

// PipelineOptions applies the narrative overrides to the defaults.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	if c.Locale != "" {
		opts.Locale = c.Locale
		opts.Sales.Locale = c.Locale
		opts.Stock.Locale = c.Locale
	}
	if n := c.Narrative.SalesMentionCap; n > 0 {
		opts.Sales.MentionCap = n
		opts.SalesRules.MentionCap = n
	}
	if n := c.Narrative.StockMentionCap; n > 0 {
		opts.Stock.MentionCap = n
		opts.StockRules.MentionCap = n
	}
	if len(c.Narrative.Units) > 0 {
		opts.Sales.Units = c.Narrative.Units
		opts.Stock.Units = c.Narrative.Units
	}
	return opts
}
