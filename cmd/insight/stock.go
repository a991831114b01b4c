package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/pipeline"
)

var stockFlags struct {
	file, date string
}

var stockCmd = &cobra.Command{
	Use:     "stock",
	Short:   "Age a stock sheet and draft liquidation actions",
	Example: "  insight stock --file stock.xlsx --date 2024-06-30",
	RunE:    runStock,
}

func init() {
	stockCmd.Flags().StringVarP(&stockFlags.file, "file", "f", "", "stock sheet (.xlsx or .csv)")
	stockCmd.Flags().StringVar(&stockFlags.date, "date", "", "observation date, YYYY-MM-DD (default: today)")
	_ = stockCmd.MarkFlagRequired("file")
}

func runStock(cmd *cobra.Command, _ []string) error {
	observed := time.Now()
	if stockFlags.date != "" {
		var err error
		if observed, err = time.Parse("2006-01-02", stockFlags.date); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}

	ctx, a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.done()

	res := a.orch.RunStock(ctx, pipeline.StockRequest{StockPath: stockFlags.file, ObservedOn: observed})

	w := cmd.OutOrStdout()
	if asJSON {
		if err := printJSON(w, res); err != nil {
			return err
		}
	} else {
		if res.OK() {
			m := res.Metrics
			for _, b := range calc.Buckets {
				fmt.Fprintf(w, "%-7s %d\n", b, m.BucketCounts[b])
			}
			if n := m.BucketCounts[calc.BucketUnknown]; n > 0 {
				fmt.Fprintf(w, "%-7s %d\n", calc.BucketUnknown, n)
			}
			fmt.Fprintf(w, "total   %d\n\n", m.Total)
			fmt.Fprintln(w, res.Report.Text())
		}
		printWarnings(w, res.Warnings)
	}
	if res.Metrics == nil {
		return errors.New("stock run failed")
	}
	return nil
}
