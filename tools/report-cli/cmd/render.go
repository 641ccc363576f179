package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/database"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf"
)

var (
	renderMonth       string
	renderYear        string
	renderDebug       bool
	renderFrom        string
	renderTo          string
	renderConcurrency int
	renderNoLedger    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Copy a period's report to the destination bucket and upload its PDF",
	Example: `  report-cli render --month prev --debug
  report-cli render --month 09 --year 2025
  report-cli render --from 2024-01 --to 2024-12 --concurrency 4`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderMonth, "month", "auto", `Month: 01-12, "auto" or "prev"`)
	renderCmd.Flags().StringVar(&renderYear, "year", "", "Year (default: year of the resolved month)")
	renderCmd.Flags().BoolVar(&renderDebug, "debug", false, "Print the JSON status payload instead of the HTML")
	renderCmd.Flags().StringVar(&renderFrom, "from", "", "First period of a backfill (YYYY-MM)")
	renderCmd.Flags().StringVar(&renderTo, "to", "", "Last period of a backfill (YYYY-MM, default: --from)")
	renderCmd.Flags().IntVar(&renderConcurrency, "concurrency", 2, "Periods rendered in parallel during a backfill")
	renderCmd.Flags().BoolVar(&renderNoLedger, "no-ledger", false, "Do not record runs in the local ledger")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, cleanup, err := reportpdf.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Without DATABASE_URL, runs go to the local SQLite ledger
	if cfg.DatabaseURL == "" && !renderNoLedger {
		db, err := database.New(cfg.LedgerPath)
		if err != nil {
			return fmt.Errorf("opening ledger %s: %w", cfg.LedgerPath, err)
		}
		defer db.Close()
		svc.SetLedger(db)
	}

	if renderFrom != "" {
		return runBackfill(cmd, svc)
	}

	res, genErr := svc.Generate(ctx, reportpdf.Request{Month: renderMonth, Year: renderYear})
	resp := reportpdf.Respond(res, genErr, renderDebug)
	fmt.Fprintln(cmd.OutOrStdout(), resp.Body)

	if genErr != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, genErr)
	}
	return nil
}

func runBackfill(cmd *cobra.Command, svc *reportpdf.Service) error {
	periods, err := periodRange(renderFrom, renderTo)
	if err != nil {
		return err
	}

	items := make([]reportpdf.BatchItem, len(periods))
	for i, p := range periods {
		items[i] = reportpdf.BatchItem{ID: p.String(), Request: reportpdf.Request{Month: p.Month, Year: p.Year}}
	}

	result := svc.GenerateBatch(cmd.Context(), items, renderConcurrency)

	out := cmd.OutOrStdout()
	for _, r := range result.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Duration.Round(time.Millisecond), status)
	}
	fmt.Fprintf(out, "\n%d periods: %d published, %d failed (%s)\n",
		result.Total, result.Successful, result.Failed, result.Duration.Round(time.Millisecond))

	if result.Failed > 0 {
		log.Warn().Int("failed", result.Failed).Msg("Backfill finished with failures")
		return fmt.Errorf("%d of %d periods failed", result.Failed, result.Total)
	}
	return nil
}

// periodRange parses --from/--to; an empty to means a single period
func periodRange(from, to string) ([]models.Period, error) {
	start, err := models.ParsePeriod(from)
	if err != nil {
		return nil, err
	}
	end := start
	if to != "" {
		if end, err = models.ParsePeriod(to); err != nil {
			return nil, err
		}
	}
	return models.PeriodRange(start, end)
}
