package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/pipeline"
)

var salesFlags struct {
	sales, targets, subject string
	start, end, today       string
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Analyse a sales sheet against monthly targets",
	Long: `Reads a sales sheet (and optionally a target sheet), computes per-month
pace and trend metrics, asks the configured LLM for a ten item report and
validates it. Records are saved per month when --subject is given.`,
	Example: "  insight sales --sales sales.xlsx --targets targets.xlsx --subject ayse --start 2024-01 --end 2024-03",
	RunE:    runSales,
}

func init() {
	f := salesCmd.Flags()
	f.StringVar(&salesFlags.sales, "sales", "", "sales sheet (.xlsx or .csv)")
	f.StringVar(&salesFlags.targets, "targets", "", "target sheet (.xlsx or .csv)")
	f.StringVar(&salesFlags.subject, "subject", "", "salesperson or store id")
	f.StringVar(&salesFlags.start, "start", "", "first month, YYYY-MM")
	f.StringVar(&salesFlags.end, "end", "", "last month, YYYY-MM")
	f.StringVar(&salesFlags.today, "today", "", "reference date, YYYY-MM-DD (default: now)")
	_ = salesCmd.MarkFlagRequired("sales")
	_ = salesCmd.MarkFlagRequired("start")
	_ = salesCmd.MarkFlagRequired("end")
}

func runSales(cmd *cobra.Command, _ []string) error {
	start, err := calc.ParsePeriod(salesFlags.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := calc.ParsePeriod(salesFlags.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	today := time.Now()
	if salesFlags.today != "" {
		if today, err = time.Parse("2006-01-02", salesFlags.today); err != nil {
			return fmt.Errorf("--today: %w", err)
		}
	}

	ctx, a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.done()

	res := a.orch.RunSales(ctx, pipeline.SalesRequest{
		SubjectID:   salesFlags.subject,
		SalesPath:   salesFlags.sales,
		TargetsPath: salesFlags.targets,
		Start:       start,
		End:         end,
		Today:       today,
	})

	w := cmd.OutOrStdout()
	if asJSON {
		if err := printJSON(w, res); err != nil {
			return err
		}
	} else if res.OK() {
		for _, pm := range res.PeriodMetrics {
			fmt.Fprintf(w, "%s  qty %d  revenue %.2f  done %.1f%%\n", pm.Period, pm.SalesQuantity, pm.SalesRevenue, pm.CompletionRate)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Report.Text())
		printWarnings(w, res.Warnings)
	} else {
		printWarnings(w, res.Warnings)
	}
	if !res.OK() {
		return errors.New("sales run failed")
	}
	return nil
}
