package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/reminder"
)

var remindFlags struct {
	period, deadline, subjects string
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Draft reminders for subjects with no sales data for a month",
	Long: `Checks every configured subject (plus every subject already stored)
for a record in the given month and drafts a reminder for each one missing.
Drafts are printed, not sent.`,
	Example: "  insight remind --period 2024-03 --deadline 2024-04-05 --subjects ayse,mehmet",
	RunE:    runRemind,
}

func init() {
	f := remindCmd.Flags()
	f.StringVar(&remindFlags.period, "period", "", "month to check, YYYY-MM (default: current month)")
	f.StringVar(&remindFlags.deadline, "deadline", "", "upload deadline mentioned in the message")
	f.StringVar(&remindFlags.subjects, "subjects", "", "comma separated subjects, added to the configured list")
}

func runRemind(cmd *cobra.Command, _ []string) error {
	period := calc.PeriodOf(time.Now())
	if remindFlags.period != "" {
		var err error
		if period, err = calc.ParsePeriod(remindFlags.period); err != nil {
			return fmt.Errorf("--period: %w", err)
		}
	}

	ctx, a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.done()

	known := append(append([]string(nil), a.cfg.Subjects...), splitList(remindFlags.subjects)...)
	svc := reminder.NewService(a.repo, a.llm, a.orch.Composer())
	drafts, warnings := svc.Draft(ctx, known, period, remindFlags.deadline)

	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(w, map[string]interface{}{"reminders": drafts, "warnings": warnings})
	}
	if len(drafts) == 0 {
		fmt.Fprintf(w, "Every subject has data for %s.\n", period)
	}
	for _, d := range drafts {
		fmt.Fprintf(w, "To: %s\nSubject: %s\n\n%s\n\n", d.SubjectID, d.Title, d.Body)
	}
	printWarnings(w, warnings)
	return nil
}
