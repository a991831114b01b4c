// Command insight runs sales and stock analyses and drafts upload reminders.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sales_insight/pkg/config"
	"sales_insight/pkg/core/llm"
	"sales_insight/pkg/core/pipeline"
	"sales_insight/pkg/core/store"
)

var (
	cfgPath  string
	logLevel string
	console  bool
	provider string
	asJSON   bool
)

var rootCmd = &cobra.Command{
	Use:           "insight",
	Short:         "Sales and stock narratives from uploaded spreadsheets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "human readable logs")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "override the active LLM provider")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(salesCmd, stockCmd, remindCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg  config.Config
	llm  *llm.Manager
	repo store.Repository
	orch *pipeline.Orchestrator
	done func()
}

// setup loads config, builds the logger, providers and repository, and
// returns a context carrying the logger and a run id.
func setup(cmd *cobra.Command) (context.Context, *app, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("run_id", uuid.NewString()).Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if provider != "" {
		cfg.ActiveProvider = provider
	}

	manager, errs := llm.NewManagerFromSpecs(ctx, cfg.LLM(), cfg.ProviderSpecs())
	for _, e := range errs {
		logger.Warn().Err(e).Msg("provider unavailable")
	}
	logger.Info().Strs("providers", manager.Names()).Str("active", cfg.ActiveProvider).Msg("providers ready")

	a := &app{cfg: cfg, llm: manager, done: func() {}}
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		a.repo = store.NewPostgresRepository(pool)
		a.done = pool.Close
	} else {
		logger.Warn().Msg("DATABASE_URL not set; records kept in memory for this run")
		a.repo = store.NewMemoryRepository()
	}

	a.orch, err = pipeline.NewOrchestrator(manager, a.repo, cfg.PipelineOptions())
	if err != nil {
		a.done()
		return nil, nil, err
	}
	return ctx, a, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w, "\nWarnings:")
	for _, msg := range warnings {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
