package reportpdf

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

// BatchItem is one period request identified by its queue message ID
type BatchItem struct {
	ID      string
	Request Request
}

// ItemResult is the outcome of one batch item
type ItemResult struct {
	ID       string
	Period   string
	Err      error
	Duration time.Duration
}

// BatchResult contains the results of a batch run
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
	Results    []*ItemResult
	Duration   time.Duration
}

// GenerateBatch publishes several periods with at most concurrency runs in flight.
// Each period is still processed as a single sequential run.
func (s *Service) GenerateBatch(ctx context.Context, items []BatchItem, concurrency int) *BatchResult {
	start := time.Now()
	result := &BatchResult{
		Total:   len(items),
		Results: make([]*ItemResult, 0, len(items)),
	}

	if len(items) == 0 {
		result.Duration = time.Since(start)
		return result
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan BatchItem, len(items))
	results := make(chan *ItemResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				select {
				case <-ctx.Done():
					results <- &ItemResult{ID: item.ID, Err: ctx.Err()}
				default:
					results <- s.runItem(ctx, item)
				}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		result.Results = append(result.Results, r)
		if r.Err == nil {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	result.Duration = time.Since(start)
	log.Info().
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Batch complete")

	return result
}

func (s *Service) runItem(ctx context.Context, item BatchItem) *ItemResult {
	start := time.Now()
	res, err := s.Generate(ctx, item.Request)

	r := &ItemResult{ID: item.ID, Err: err, Duration: time.Since(start)}
	if res != nil {
		r.Period = res.Period.String()
	}
	return r
}

// ProcessQueue handles an SQS batch of {"month","year"} messages one at a
// time, in delivery order. Messages that failed for a transient reason are
// reported back for redelivery; malformed messages, invalid periods and
// missing reports are dropped.
func (s *Service) ProcessQueue(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		var req Request
		if err := json.Unmarshal([]byte(record.Body), &req); err != nil {
			log.Error().Err(err).Str("message_id", record.MessageId).Msg("Dropping malformed queue message")
			continue
		}

		var r *ItemResult
		if err := ctx.Err(); err != nil {
			r = &ItemResult{ID: record.MessageId, Err: err}
		} else {
			r = s.runItem(ctx, BatchItem{ID: record.MessageId, Request: req})
		}

		if r.Err == nil {
			continue
		}
		if !retryable(r.Err) {
			log.Warn().Err(r.Err).Str("message_id", r.ID).Str("period", r.Period).Msg("Dropping queued period")
			continue
		}
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: r.ID})
	}
	return resp, nil
}
