package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/logging"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf"
)

// Consumes {"month","year"} messages from REPORT_QUEUE_URL. The event source
// mapping must enable ReportBatchItemFailures for partial redelivery.
func main() {
	logging.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	svc, cleanup, err := reportpdf.Setup(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report service")
	}
	defer cleanup()

	log.Info().Msg("Report worker ready")
	lambda.Start(svc.ProcessQueue)
}
