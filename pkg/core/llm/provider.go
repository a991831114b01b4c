// Package llm talks to generative text services. Every provider satisfies
// the same one-call interface and Call folds failures into a Result so
// callers never branch on provider errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Provider is a generative text service.
type Provider interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, system, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// ErrEmptyResponse is returned when a service answers with no text.
var ErrEmptyResponse = errors.New("empty response")

// GenerativeServiceError wraps any failure of a generative call: transport,
// auth, quota, malformed or empty replies.
type GenerativeServiceError struct {
	Provider string
	Err      error
}

func (e *GenerativeServiceError) Error() string {
	return fmt.Sprintf("generative service %s: %v", e.Provider, e.Err)
}

func (e *GenerativeServiceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one generative call. Exactly one of Text and Err
// is meaningful; a failed call has empty Text.
type Result struct {
	Text     string
	Err      error
	Provider string
	Elapsed  time.Duration
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// Call invokes p once, without retry, and converts errors and blank
// replies into a failed Result.
func Call(ctx context.Context, name string, p Provider, system, prompt string) Result {
	log := zerolog.Ctx(ctx)
	start := time.Now()
	res := Result{Provider: name}

	if p == nil {
		res.Err = &GenerativeServiceError{Provider: name, Err: errors.New("no provider configured")}
		return res
	}

	text, err := p.Generate(ctx, system, prompt)
	res.Elapsed = time.Since(start)
	switch {
	case err != nil:
		res.Err = &GenerativeServiceError{Provider: name, Err: err}
	case strings.TrimSpace(text) == "":
		res.Err = &GenerativeServiceError{Provider: name, Err: ErrEmptyResponse}
	default:
		res.Text = text
	}

	if res.Err != nil {
		log.Warn().Err(res.Err).Str("provider", name).Dur("elapsed", res.Elapsed).Msg("generative call failed")
	} else {
		log.Debug().Str("provider", name).Int("chars", len(text)).Dur("elapsed", res.Elapsed).Msg("generative call done")
	}
	return res
}
