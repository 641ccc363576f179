package reportpdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes a summary of each run to an SNS topic
type SNSNotifier struct {
	client   snsAPI
	topicARN string
}

// NewSNSNotifier creates a notifier for topicARN
func NewSNSNotifier(client snsAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Notify publishes the run summary
func (n *SNSNotifier) Notify(ctx context.Context, run models.RunRecord) error {
	result, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(notificationSubject(run)),
		Message:  aws.String(notificationMessage(run)),
	})
	if err != nil {
		return fmt.Errorf("publishing to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Str("period", run.Period).Msg("Notification sent")
	return nil
}

func notificationSubject(run models.RunRecord) string {
	return fmt.Sprintf("Uptime report %s - %s", run.Period, run.Status)
}

func notificationMessage(run models.RunRecord) string {
	var b strings.Builder
	b.WriteString("Uptime Report Run\n")
	b.WriteString("=================\n")
	fmt.Fprintf(&b, "Period: %s\n", run.Period)
	fmt.Fprintf(&b, "Status: %s\n", run.Status)
	fmt.Fprintf(&b, "Finished: %s (%s)\n\n", run.FinishedAt.Format("2006-01-02 15:04:05 MST"), run.Duration().Round(time.Millisecond))

	if run.SrcKey != "" {
		fmt.Fprintf(&b, "Source: %s\n", storage.URI(run.SrcBucket, run.SrcKey))
	}
	if run.DestHTMLKey != "" && run.SrcKey != "" {
		fmt.Fprintf(&b, "HTML:   %s\n", storage.URI(run.DestBucket, run.DestHTMLKey))
	}
	if run.DestPDFKey != "" {
		fmt.Fprintf(&b, "PDF:    %s (%d bytes, %s)\n", storage.URI(run.DestBucket, run.DestPDFKey), run.PDFSize, run.Renderer)
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "\nError Details:\n%s\n", run.Error)
	}
	return b.String()
}
