// Package pipeline runs one insight request end to end:
// ingest -> aggregate -> compose -> generate -> validate -> persist.
// Runs are synchronous and share nothing but the repository.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/ingest"
	"sales_insight/pkg/core/llm"
	"sales_insight/pkg/core/narrative"
	"sales_insight/pkg/core/prompt"
	"sales_insight/pkg/core/store"
	"sales_insight/pkg/core/table"
)

// Mode names used to route generative calls.
const (
	ModeSales    = "sales"
	ModeStock    = "stock"
	ModeReminder = "reminder"
)

// Generator produces text for a mode. *llm.Manager implements it.
type Generator interface {
	Generate(ctx context.Context, mode, system, prompt string) llm.Result
}

// Options tunes prompt rules and validation.
type Options struct {
	Locale     string
	SalesRules prompt.Rules
	StockRules prompt.Rules
	Sales      narrative.Config
	Stock      narrative.Config
}

// DefaultOptions matches the built-in prompt and validator defaults.
func DefaultOptions() Options {
	return Options{
		Locale:     "en",
		SalesRules: prompt.DefaultSalesRules(),
		StockRules: prompt.DefaultStockRules(),
		Sales:      narrative.SalesConfig(),
		Stock:      narrative.StockConfig(),
	}
}

// Orchestrator wires the pipeline stages.
type Orchestrator struct {
	gen      Generator
	composer *prompt.Composer
	repo     store.Repository
	opts     Options
	now      func() time.Time
}

// NewOrchestrator builds an orchestrator over the embedded prompt
// templates. repo may be nil, in which case nothing is persisted.
func NewOrchestrator(gen Generator, repo store.Repository, opts Options) (*Orchestrator, error) {
	registry, err := prompt.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return NewOrchestratorWithRegistry(gen, repo, registry, opts), nil
}

// NewOrchestratorWithRegistry uses a caller-supplied prompt registry.
func NewOrchestratorWithRegistry(gen Generator, repo store.Repository, registry *prompt.Registry, opts Options) *Orchestrator {
	return &Orchestrator{
		gen:      gen,
		composer: prompt.NewComposer(registry, opts.SalesRules, opts.StockRules, opts.Locale),
		repo:     repo,
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock overrides "today" for runs that do not set it.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Composer exposes the prompt composer for callers that render reminders.
func (o *Orchestrator) Composer() *prompt.Composer {
	return o.composer
}

// =============================================================================
// SALES
// =============================================================================

// SalesRequest names the inputs of a sales run. A table takes precedence
// over its path; with neither, the target table is treated as empty.
type SalesRequest struct {
	SubjectID   string
	Sales       *table.RawTable
	SalesPath   string
	Targets     *table.RawTable
	TargetsPath string
	Start, End  calc.Period
	Today       time.Time
}

// SalesResult is returned for every run. Metrics is nil when ingestion
// failed; Warnings then explains why.
type SalesResult struct {
	PeriodMetrics []calc.PeriodMetric `json:"period_metrics"`
	Report        narrative.Report    `json:"report"`
	Warnings      []string            `json:"warnings"`
	Metrics       *calc.SalesMetrics  `json:"metrics"`
	Prompt        prompt.Payload      `json:"-"`
	Saved         int                 `json:"saved"`
}

// OK reports whether ingestion succeeded and a report was produced.
func (r *SalesResult) OK() bool {
	return r.Metrics != nil
}

// RunSales executes a sales run. It never returns an error: ingestion
// failures stop the run before the generative call, and generative or
// persistence failures degrade to warnings.
func (o *Orchestrator) RunSales(ctx context.Context, req SalesRequest) *SalesResult {
	log := zerolog.Ctx(ctx).With().Str("mode", ModeSales).Str("subject", req.SubjectID).Logger()
	start := time.Now()
	res := &SalesResult{}

	today := req.Today
	if today.IsZero() {
		today = o.now()
	}

	in := calc.SalesInput{Start: req.Start, End: req.End, Today: today}
	var ingestErrs []error

	sales, err := loadTable(req.Sales, req.SalesPath, "sales")
	if err != nil {
		ingestErrs = append(ingestErrs, err)
	} else {
		in.Sales = sales.Normalized()
		if in.SalesCols, err = table.Resolve(in.Sales, table.SalesFields); err != nil {
			ingestErrs = append(ingestErrs, err)
		}
	}

	if req.Targets != nil || req.TargetsPath != "" {
		targets, err := loadTable(req.Targets, req.TargetsPath, "targets")
		if err != nil {
			ingestErrs = append(ingestErrs, err)
		} else {
			in.Targets = targets.Normalized()
			if in.TargetCols, err = table.Resolve(in.Targets, table.TargetFields); err != nil {
				ingestErrs = append(ingestErrs, err)
			}
		}
	} else {
		res.Warnings = append(res.Warnings, "no target table given; completion rates are 0")
	}

	if len(ingestErrs) > 0 {
		for _, e := range ingestErrs {
			res.Warnings = append(res.Warnings, e.Error())
		}
		log.Warn().Int("errors", len(ingestErrs)).Msg("ingestion failed")
		return res
	}

	metrics, err := calc.AggregateSales(in)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		log.Warn().Err(err).Msg("aggregation failed")
		return res
	}
	res.Metrics = metrics
	res.PeriodMetrics = metrics.Periods
	res.Warnings = append(res.Warnings, metrics.Warnings...)

	payload, err := o.composer.Sales(metrics)
	res.Prompt = payload
	text := ""
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("prompt: %v; using fallback report", err))
	} else {
		text = o.generate(ctx, ModeSales, payload, &res.Warnings)
	}

	res.Report = narrative.Validate(text, narrative.SalesFacts(metrics, o.opts.Locale), o.opts.Sales)
	res.Saved = o.persist(ctx, req.SubjectID, metrics, res.Report, &res.Warnings)

	log.Info().
		Int("periods", len(metrics.Periods)).
		Int("kept", res.Report.Kept).
		Int("fallback", res.Report.Fallback).
		Int("saved", res.Saved).
		Dur("elapsed", time.Since(start)).
		Msg("sales run done")
	return res
}

func (o *Orchestrator) persist(ctx context.Context, subjectID string, m *calc.SalesMetrics, rep narrative.Report, warnings *[]string) int {
	if o.repo == nil {
		return 0
	}
	if subjectID == "" {
		*warnings = append(*warnings, "no subject id; records not saved")
		return 0
	}
	saved := 0
	text := rep.Text()
	for _, pm := range m.Periods {
		daily, required := calc.PeriodPace(pm, m.Today)
		rec := store.Record{
			SubjectID:         subjectID,
			PeriodKey:         pm.Period.String(),
			TargetQuantity:    pm.TargetQuantity,
			TargetRevenue:     pm.TargetRevenue,
			ActualQuantity:    pm.SalesQuantity,
			ActualRevenue:     pm.SalesRevenue,
			DailyAverage:      daily,
			RequiredDailyRate: required,
			CompletionPercent: pm.CompletionRate,
			NarrativeText:     text,
		}
		if err := o.repo.Upsert(ctx, rec); err != nil {
			var perr *store.PersistenceError
			if !errors.As(err, &perr) {
				err = &store.PersistenceError{Op: "upsert", SubjectID: subjectID, PeriodKey: rec.PeriodKey, Err: err}
			}
			*warnings = append(*warnings, err.Error())
			zerolog.Ctx(ctx).Warn().Err(err).Str("period", rec.PeriodKey).Msg("persist failed")
			continue
		}
		saved++
	}
	return saved
}

// =============================================================================
// STOCK
// =============================================================================

// StockRequest names the input of a stock run.
type StockRequest struct {
	Stock      *table.RawTable
	StockPath  string
	ObservedOn time.Time
}

// StockResult carries the aging metrics and the liquidation report.
type StockResult struct {
	Report   narrative.Report   `json:"report"`
	Warnings []string           `json:"warnings"`
	Metrics  *calc.StockMetrics `json:"metrics"`
	Prompt   prompt.Payload     `json:"-"`
}

// OK reports whether a report was produced.
func (r *StockResult) OK() bool {
	return r.Metrics != nil && !r.Metrics.Empty
}

// RunStock executes a stock aging run. A table without dated rows yields
// empty metrics, an empty report and a warning.
func (o *Orchestrator) RunStock(ctx context.Context, req StockRequest) *StockResult {
	log := zerolog.Ctx(ctx).With().Str("mode", ModeStock).Logger()
	res := &StockResult{}

	observed := req.ObservedOn
	if observed.IsZero() {
		observed = o.now()
	}

	raw, err := loadTable(req.Stock, req.StockPath, "stock")
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	stock := raw.Normalized()
	cols, err := table.Resolve(stock, table.StockFields)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		log.Warn().Err(err).Msg("ingestion failed")
		return res
	}

	metrics := calc.AggregateStock(calc.StockInput{Stock: stock, Cols: cols, ObservedOn: observed})
	res.Metrics = metrics
	res.Warnings = append(res.Warnings, metrics.Warnings...)
	if metrics.Empty {
		log.Warn().Msg("no dated stock rows")
		return res
	}

	payload, err := o.composer.Stock(metrics)
	res.Prompt = payload
	text := ""
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("prompt: %v; using fallback report", err))
	} else {
		text = o.generate(ctx, ModeStock, payload, &res.Warnings)
	}

	res.Report = narrative.Validate(text, narrative.StockFacts(metrics, o.opts.Locale), o.opts.Stock)
	log.Info().
		Int("items", metrics.Total).
		Str("focus_band", metrics.FocusBand).
		Int("kept", res.Report.Kept).
		Int("fallback", res.Report.Fallback).
		Msg("stock run done")
	return res
}

// =============================================================================
// SHARED
// =============================================================================

func (o *Orchestrator) generate(ctx context.Context, mode string, payload prompt.Payload, warnings *[]string) string {
	if o.gen == nil {
		*warnings = append(*warnings, "no generative provider configured; using fallback report")
		return ""
	}
	r := o.gen.Generate(ctx, mode, payload.System, payload.User)
	if !r.OK() {
		*warnings = append(*warnings, fmt.Sprintf("%v; using fallback report", r.Err))
		return ""
	}
	return r.Text
}

func loadTable(t *table.RawTable, path, name string) (*table.RawTable, error) {
	if t != nil {
		return t, nil
	}
	if path == "" {
		return nil, &table.FileParseError{Path: name, Err: errors.New("no file given")}
	}
	return ingest.ReadFile(path)
}
