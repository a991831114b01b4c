package llm

import (
	"context"
	"fmt"
	"sort"
)

// Config selects providers. It mirrors the provider section of the YAML
// config file.
type Config struct {
	ActiveProvider string                `yaml:"active_provider"`
	Modes          map[string]ModeConfig `yaml:"modes"`
}

// ModeConfig overrides the provider for one pipeline mode (sales, stock,
// reminder).
type ModeConfig struct {
	Provider    string `yaml:"provider"`
	Description string `yaml:"description"`
}

// Manager resolves which provider serves a mode.
type Manager struct {
	config    Config
	providers map[string]Provider
}

// NewManager creates a manager over named providers.
func NewManager(config Config, providers map[string]Provider) *Manager {
	m := &Manager{config: config, providers: make(map[string]Provider, len(providers))}
	for name, p := range providers {
		m.providers[name] = p
	}
	return m
}

// Register adds or replaces a named provider.
func (m *Manager) Register(name string, p Provider) {
	m.providers[name] = p
}

// ProviderFor returns the provider for mode: the mode override first, then
// the active provider.
func (m *Manager) ProviderFor(mode string) (string, Provider, error) {
	if mc, ok := m.config.Modes[mode]; ok && mc.Provider != "" {
		if p, ok := m.providers[mc.Provider]; ok {
			return mc.Provider, p, nil
		}
		return mc.Provider, nil, fmt.Errorf("provider %q for mode %s is not configured", mc.Provider, mode)
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider, p, nil
	}
	return m.config.ActiveProvider, nil, fmt.Errorf("active provider %q is not configured", m.config.ActiveProvider)
}

// Generate runs one call for mode. Resolution failures come back as a
// failed Result like any other service error.
func (m *Manager) Generate(ctx context.Context, mode, system, prompt string) Result {
	name, p, err := m.ProviderFor(mode)
	if err != nil {
		return Result{Provider: name, Err: &GenerativeServiceError{Provider: name, Err: err}}
	}
	return Call(ctx, name, p, system, prompt)
}

// SetActive switches the global provider.
func (m *Manager) SetActive(name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	return nil
}

// Active returns the global provider name.
func (m *Manager) Active() string {
	return m.config.ActiveProvider
}

// Names lists configured providers in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for n := range m.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
