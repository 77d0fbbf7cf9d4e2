package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/kimola/kimola-go/internal/queue"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) ProcessAlert(ctx context.Context, msg queue.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "reports/2025-01-01/r.json", nil
}

func quiet(t *testing.T) {
	t.Helper()
	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(prev) })
}

func alertMessage(t *testing.T, id, receipt string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		Type:     queue.TypeUsageThreshold,
		Resource: "query",
		TakenAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	quiet(t)
	client := &fakeSQS{}
	p := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", p, alertMessage(t, "m1", "r1"))

	if p.calls != 1 || len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected processed and deleted, got calls=%d deleted=%v", p.calls, client.deleted)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	quiet(t)
	client := &fakeSQS{}
	p := &fakeProcessor{err: errors.New("boom")}

	handleMessage(context.Background(), client, "queue", p, alertMessage(t, "m2", "r2"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	quiet(t)
	client := &fakeSQS{}
	p := &fakeProcessor{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", p, msg)

	if len(client.deleted) != 1 || p.calls != 0 {
		t.Fatalf("expected delete without processing, got deleted=%d calls=%d", len(client.deleted), p.calls)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("receiveCount(empty) = %d", got)
	}
	msg := sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	if got := receiveCount(msg); got != 3 {
		t.Fatalf("receiveCount = %d", got)
	}
}
