package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf"
)

var (
	enqueueFrom     string
	enqueueTo       string
	enqueueQueueURL string
	enqueueDryRun   bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue periods for the report worker",
	Example: `  report-cli enqueue
  report-cli enqueue --from 2024-01 --to 2024-12`,
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueFrom, "from", "", "First period (YYYY-MM, default: previous month)")
	enqueueCmd.Flags().StringVar(&enqueueTo, "to", "", "Last period (YYYY-MM, default: --from)")
	enqueueCmd.Flags().StringVar(&enqueueQueueURL, "queue-url", "", "SQS queue URL (default: REPORT_QUEUE_URL)")
	enqueueCmd.Flags().BoolVar(&enqueueDryRun, "dry-run", false, "Preview only, don't push to SQS")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	queueURL := enqueueQueueURL
	if queueURL == "" {
		queueURL = cfg.ReportQueueURL
	}
	if queueURL == "" && !enqueueDryRun {
		return errors.New("no queue: set REPORT_QUEUE_URL or --queue-url")
	}

	var periods []models.Period
	if enqueueFrom == "" {
		prev, err := models.ResolvePeriod("prev", "", time.Now())
		if err != nil {
			return err
		}
		periods = []models.Period{prev}
	} else {
		var err error
		if periods, err = periodRange(enqueueFrom, enqueueTo); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if enqueueDryRun {
		for _, p := range periods {
			fmt.Fprintf(out, "would queue %s\n", p)
		}
		return nil
	}

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.S3Region)
	if err != nil {
		return err
	}

	n, err := reportpdf.NewQueuePublisher(sqs.NewFromConfig(awsCfg), queueURL).Enqueue(ctx, periods)
	fmt.Fprintf(out, "queued %d of %d periods\n", n, len(periods))
	return err
}
