// Package reminder finds subjects that have not uploaded data for a period
// and drafts a reminder for each. Delivery is left to the caller.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/llm"
	"sales_insight/pkg/core/prompt"
	"sales_insight/pkg/core/store"
	"sales_insight/pkg/core/utils"
)

// Mode routes reminder calls to their provider.
const Mode = "reminder"

// Generator produces text for a mode. *llm.Manager implements it.
type Generator interface {
	Generate(ctx context.Context, mode, system, prompt string) llm.Result
}

// Reminder is one drafted message.
type Reminder struct {
	SubjectID string `json:"subject_id"`
	Period    string `json:"period"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Generated bool   `json:"generated"`
}

// Service drafts reminders from repository state.
type Service struct {
	repo     store.Repository
	gen      Generator
	composer *prompt.Composer
}

// NewService wires a reminder service. gen may be nil; every reminder then
// uses the fixed template.
func NewService(repo store.Repository, gen Generator, composer *prompt.Composer) *Service {
	return &Service{repo: repo, gen: gen, composer: composer}
}

// Missing returns the subjects, from known plus every subject the
// repository has seen, with no record for period. Lookup failures other
// than not-found are returned as warnings and the subject is skipped.
func (s *Service) Missing(ctx context.Context, known []string, period calc.Period) ([]string, []string) {
	var warnings []string
	all := make(map[string]struct{}, len(known))
	for _, k := range known {
		if k = strings.TrimSpace(k); k != "" {
			all[k] = struct{}{}
		}
	}
	stored, err := s.repo.Subjects(ctx)
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	for _, k := range stored {
		all[k] = struct{}{}
	}

	subjects := make([]string, 0, len(all))
	for k := range all {
		subjects = append(subjects, k)
	}
	sort.Strings(subjects)

	var missing []string
	for _, subject := range subjects {
		_, err := s.repo.Get(ctx, subject, period.String())
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			missing = append(missing, subject)
		default:
			warnings = append(warnings, err.Error())
		}
	}
	return missing, warnings
}

// Draft writes one reminder per missing subject. A failed or empty
// generative reply falls back to the fixed template.
func (s *Service) Draft(ctx context.Context, known []string, period calc.Period, deadline string) ([]Reminder, []string) {
	log := zerolog.Ctx(ctx)
	missing, warnings := s.Missing(ctx, known, period)

	out := make([]Reminder, 0, len(missing))
	for _, subject := range missing {
		r := Reminder{
			SubjectID: subject,
			Period:    period.String(),
			Title:     fmt.Sprintf("[Reminder] sales data for %s has not been uploaded", period),
			Body:      Template(subject, period, deadline),
		}
		if text, ok := s.generate(ctx, subject, period, deadline, &warnings); ok {
			r.Body = text
			r.Generated = true
		}
		out = append(out, r)
	}
	log.Info().Int("missing", len(missing)).Str("period", period.String()).Msg("reminders drafted")
	return out, warnings
}

func (s *Service) generate(ctx context.Context, subject string, period calc.Period, deadline string, warnings *[]string) (string, bool) {
	if s.gen == nil || s.composer == nil {
		return "", false
	}
	payload, err := s.composer.Reminder(subject, "sales", period.String(), deadline)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("reminder prompt: %v", err))
		return "", false
	}
	res := s.gen.Generate(ctx, Mode, payload.System, payload.User)
	if !res.OK() {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v; using template", subject, res.Err))
		return "", false
	}
	text := strings.TrimSpace(utils.CleanMarkdown(res.Text))
	return text, text != ""
}

// Template is the fixed reminder body.
func Template(subject string, period calc.Period, deadline string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nNo sales data has been uploaded for %s yet. Please upload it", subject, period)
	if deadline != "" {
		fmt.Fprintf(&b, " before %s", deadline)
	}
	b.WriteString(" so the monthly report can be prepared.\n\nThank you.")
	return b.String()
}
