package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/logging"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf"
)

// TriggerInput is the input from the EventBridge schedule or a manual invoke
type TriggerInput struct {
	From string `json:"from,omitempty"` // YYYY-MM, default previous month
	To   string `json:"to,omitempty"`   // YYYY-MM, default From
}

// TriggerOutput summarizes what was queued
type TriggerOutput struct {
	Periods []string `json:"periods"`
	Queued  int      `json:"queued"`
}

type enqueuer interface {
	Enqueue(ctx context.Context, periods []models.Period) (int, error)
}

var (
	queue enqueuer
	now   = time.Now
)

func Handler(ctx context.Context, input TriggerInput) (*TriggerOutput, error) {
	periods, err := resolvePeriods(input, now())
	if err != nil {
		return nil, err
	}

	output := &TriggerOutput{}
	for _, p := range periods {
		output.Periods = append(output.Periods, p.String())
	}

	log.Info().Strs("periods", output.Periods).Msg("Triggering report generation")

	output.Queued, err = queue.Enqueue(ctx, periods)
	if err != nil {
		return output, fmt.Errorf("enqueuing periods: %w", err)
	}
	return output, nil
}

func resolvePeriods(input TriggerInput, now time.Time) ([]models.Period, error) {
	if input.From == "" {
		if input.To != "" {
			return nil, fmt.Errorf("to %q given without from", input.To)
		}
		prev, err := models.ResolvePeriod("prev", "", now)
		if err != nil {
			return nil, err
		}
		return []models.Period{prev}, nil
	}

	from, err := models.ParsePeriod(input.From)
	if err != nil {
		return nil, err
	}
	to := from
	if input.To != "" {
		if to, err = models.ParsePeriod(input.To); err != nil {
			return nil, err
		}
	}
	return models.PeriodRange(from, to)
}

func main() {
	logging.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.ReportQueueURL == "" {
		log.Fatal().Msg("REPORT_QUEUE_URL not set")
	}

	awsCfg, err := storage.LoadAWSConfig(context.Background(), cfg.S3Region)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	queue = reportpdf.NewQueuePublisher(sqs.NewFromConfig(awsCfg), cfg.ReportQueueURL)

	lambda.Start(Handler)
}
