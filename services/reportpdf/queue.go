package reportpdf

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// maxBatchEntries is the SQS limit for SendMessageBatch
const maxBatchEntries = 10

type sqsAPI interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// QueuePublisher sends period requests to the report worker queue
type QueuePublisher struct {
	client   sqsAPI
	queueURL string
}

// NewQueuePublisher creates a publisher for queueURL
func NewQueuePublisher(client sqsAPI, queueURL string) *QueuePublisher {
	return &QueuePublisher{client: client, queueURL: queueURL}
}

// Enqueue sends one message per period and returns how many were accepted
func (q *QueuePublisher) Enqueue(ctx context.Context, periods []models.Period) (int, error) {
	queued := 0
	for i := 0; i < len(periods); i += maxBatchEntries {
		end := i + maxBatchEntries
		if end > len(periods) {
			end = len(periods)
		}

		entries := make([]types.SendMessageBatchRequestEntry, 0, end-i)
		for j, p := range periods[i:end] {
			body, err := json.Marshal(Request{Month: p.Month, Year: p.Year})
			if err != nil {
				return queued, fmt.Errorf("marshaling %s: %w", p, err)
			}
			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i + j)),
				MessageBody: aws.String(string(body)),
			})
		}

		out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(q.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return queued, fmt.Errorf("sending batch to SQS: %w", err)
		}

		queued += len(out.Successful)
		for _, f := range out.Failed {
			log.Warn().
				Str("entry", aws.ToString(f.Id)).
				Str("code", aws.ToString(f.Code)).
				Str("reason", aws.ToString(f.Message)).
				Msg("Queue rejected period")
		}
	}

	log.Info().Int("periods", len(periods)).Int("queued", queued).Msg("Periods enqueued")
	if queued < len(periods) {
		return queued, fmt.Errorf("queued %d of %d periods", queued, len(periods))
	}
	return queued, nil
}
