package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/database"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

var (
	runsLimit  int
	runsPeriod string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs recorded in the local ledger",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVar(&runsPeriod, "period", "", "Only show the latest run of this period (YYYY-MM)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.New(cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", cfg.LedgerPath, err)
	}
	defer db.Close()

	var runs []models.RunRecord
	if runsPeriod != "" {
		p, err := models.ParsePeriod(runsPeriod)
		if err != nil {
			return err
		}
		latest, err := db.LatestRun(ctx, p.String())
		if err != nil {
			return err
		}
		if latest != nil {
			runs = append(runs, *latest)
		}
	} else {
		if runs, err = db.ListRuns(ctx, runsLimit); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSTATUS\tRENDERER\tPDF BYTES\tFINISHED\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Period, r.Status, r.Renderer, r.PDFSize,
			r.FinishedAt.Format("2006-01-02 15:04"), r.Duration().Round(time.Millisecond), r.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if runsPeriod == "" {
		counts, err := db.CountRunsByStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		for _, s := range models.AllRunStatuses {
			if counts[s] > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %d\n", s, counts[s])
			}
		}
	}
	return nil
}
