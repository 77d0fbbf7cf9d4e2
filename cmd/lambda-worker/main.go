package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kimola/kimola-go/internal/bootstrap"
	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/internal/shared/config"
	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
	"github.com/kimola/kimola-go/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.Processor
)

func initProcessor() {
	cfg := config.Load()
	client, err := bootstrap.NewClient(cfg)
	if err != nil {
		initErr = err
		return
	}
	store, err := bootstrap.ReportStore(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	processor = workerproc.ReportProcessor{Source: report.ClientSource(client), Store: store}
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initProcessor)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, processor, event), nil
}

// handleBatch reports only retryable failures back to SQS; unrecoverable
// messages are acknowledged so they leave the queue.
func handleBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncAlertJobsReceived()
		msg, key, err := workerproc.HandleMessage(ctx, p, record.Body)
		fields := map[string]any{"sqs_message_id": record.MessageId}
		if msg.Resource != "" {
			fields["resource"] = msg.Resource
		}
		switch {
		case err == nil:
			fields["report_key"] = key
			telemetry.Info("worker.alert.completed", fields)
			metrics.IncAlertJobsCompleted()
		case workerproc.Unrecoverable(err):
			fields["error"] = err.Error()
			telemetry.Error("worker.alert.dropped", fields)
			metrics.IncAlertJobsDeletedUnrecoverable()
		default:
			fields["error"] = err.Error()
			telemetry.Error("worker.alert.failed", fields)
			metrics.IncAlertJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
