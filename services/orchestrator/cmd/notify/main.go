package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/logging"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
)

// NotifyInput is the workflow summary from Step Functions: the trigger's
// queue count merged with the check-status output.
type NotifyInput struct {
	Period     string                   `json:"period"`
	Queued     int                      `json:"queued"`
	Counts     map[models.RunStatus]int `json:"counts"`
	Latest     *models.RunRecord        `json:"latest,omitempty"`
	Published  bool                     `json:"published"`
	NeedsRetry bool                     `json:"needs_retry"`
	Error      string                   `json:"error,omitempty"`
}

// NotifyOutput is the result of the notification
type NotifyOutput struct {
	MessageID string `json:"message_id"`
	Sent      bool   `json:"sent"`
}

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var (
	client   publisher
	topicARN string
	now      = time.Now
)

func Handler(ctx context.Context, input NotifyInput) (*NotifyOutput, error) {
	if topicARN == "" {
		log.Info().Msg("SNS_TOPIC_ARN not set, skipping notification")
		return &NotifyOutput{Sent: false}, nil
	}

	status := workflowStatus(input)
	result, err := client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(fmt.Sprintf("Uptime report workflow %s - %s", input.Period, status)),
		Message:  aws.String(summary(input, status)),
	})
	if err != nil {
		return nil, fmt.Errorf("publishing to SNS: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	log.Info().Str("message_id", messageID).Str("period", input.Period).Str("status", status).Msg("Notification sent")

	return &NotifyOutput{MessageID: messageID, Sent: true}, nil
}

// workflowStatus is SUCCESS, PARTIAL_FAILURE or FAILED
func workflowStatus(input NotifyInput) string {
	switch {
	case input.Error != "":
		return "FAILED"
	case input.Published:
		return "SUCCESS"
	case input.NeedsRetry:
		return "PARTIAL_FAILURE"
	case input.Latest == nil:
		return "PENDING"
	default:
		return "FAILED"
	}
}

func summary(input NotifyInput, status string) string {
	var b strings.Builder
	b.WriteString("Uptime Report Workflow Complete\n")
	b.WriteString("===============================\n")
	fmt.Fprintf(&b, "Date: %s\n", now().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Period: %s\n", input.Period)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Periods Queued: %d\n", input.Queued)

	if run := input.Latest; run != nil {
		b.WriteString("\nLatest Run:\n")
		fmt.Fprintf(&b, "  Status: %s\n", run.Status)
		fmt.Fprintf(&b, "  Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
		if run.DestPDFKey != "" {
			fmt.Fprintf(&b, "  PDF: %s (%d bytes)\n", storage.URI(run.DestBucket, run.DestPDFKey), run.PDFSize)
		}
		if run.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", run.Error)
		}
	}

	if len(input.Counts) > 0 {
		b.WriteString("\nAll Runs:\n")
		for _, s := range models.AllRunStatuses {
			fmt.Fprintf(&b, "  %s: %d\n", s, input.Counts[s])
		}
	}

	if input.Error != "" {
		fmt.Fprintf(&b, "\nError Details:\n%s\n", input.Error)
	}
	return b.String()
}

// configure sets the SNS client and topic from cfg. Without a topic the
// handler skips publishing and no client is built.
func configure(ctx context.Context, cfg *config.Config) error {
	topicARN = cfg.SNSTopicARN
	if topicARN == "" {
		return nil
	}

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.S3Region)
	if err != nil {
		return err
	}
	client = sns.NewFromConfig(awsCfg)
	return nil
}

func main() {
	logging.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := configure(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	lambda.Start(Handler)
}
