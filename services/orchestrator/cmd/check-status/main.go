package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/database"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/logging"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// StatusInput selects the period to report on; tokens follow the report request rules
type StatusInput struct {
	Month string `json:"month,omitempty"`
	Year  string `json:"year,omitempty"`
}

// StatusOutput is the output for Step Functions
type StatusOutput struct {
	Period       string                   `json:"period"`
	Counts       map[models.RunStatus]int `json:"counts"`
	Latest       *models.RunRecord        `json:"latest,omitempty"`
	Published    bool                     `json:"published"`     // latest run uploaded a PDF
	NeedsRetry   bool                     `json:"needs_retry"`   // latest run failed in a retryable way
	CheckedAtUTC string                   `json:"checked_at_utc"`
}

type statusLedger interface {
	CountRunsByStatus(ctx context.Context) (map[models.RunStatus]int, error)
	LatestRun(ctx context.Context, period string) (*models.RunRecord, error)
}

var (
	ledger statusLedger
	now    = time.Now
)

func Handler(ctx context.Context, input StatusInput) (*StatusOutput, error) {
	period, err := models.ResolvePeriod(input.Month, input.Year, now())
	if err != nil {
		return nil, err
	}

	counts, err := ledger.CountRunsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}
	// Report every status, including those with no runs yet
	for _, s := range models.AllRunStatuses {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}

	latest, err := ledger.LatestRun(ctx, period.String())
	if err != nil {
		return nil, fmt.Errorf("loading latest run for %s: %w", period, err)
	}

	output := &StatusOutput{
		Period:       period.String(),
		Counts:       counts,
		Latest:       latest,
		CheckedAtUTC: now().UTC().Format(time.RFC3339),
	}
	if latest != nil {
		output.Published = latest.Status == models.RunStatusCompleted
		output.NeedsRetry = latest.Status == models.RunStatusStorageError ||
			latest.Status == models.RunStatusRenderFailed ||
			latest.Status == models.RunStatusFailed
	}

	log.Info().
		Str("period", output.Period).
		Bool("published", output.Published).
		Bool("needs_retry", output.NeedsRetry).
		Interface("counts", counts).
		Msg("Status checked")

	return output, nil
}

// openLedger connects to the Postgres run ledger named by cfg
func openLedger(ctx context.Context, cfg *config.Config) (*database.PostgresDB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	return database.NewPostgresDB(ctx, cfg.DatabaseURL)
}

func main() {
	logging.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := openLedger(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	ledger = db

	lambda.Start(Handler)
}
