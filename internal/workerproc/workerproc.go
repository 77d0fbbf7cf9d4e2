// Package workerproc decodes alert messages consumed from the queue and
// archives a usage report for each threshold crossing.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/kimola/kimola-go/internal/queue"
	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/internal/shared/storage/object"
	"github.com/kimola/kimola-go/kimola"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnsupportedType indicates a message this worker does not handle.
type ErrUnsupportedType struct {
	Meta MessageMeta
	Type string
}

func (e ErrUnsupportedType) Error() string { return "unsupported message type " + e.Type }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Resource   string
	SnapshotID string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process alert"
	}
	return "process alert: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Type != queue.TypeUsageThreshold {
		return msg, meta, ErrUnsupportedType{Meta: meta, Type: msg.Type}
	}
	return msg, meta, nil
}

// Unrecoverable reports whether err means the message can never succeed
// and should be dropped from the queue.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrUnsupportedType:
		return true
	default:
		return false
	}
}

// Processor handles one decoded alert.
type Processor interface {
	ProcessAlert(ctx context.Context, msg queue.Message) (string, error)
}

// ReportProcessor archives a usage report for each alert.
type ReportProcessor struct {
	Source report.Source
	Store  object.ObjectStore
}

// ProcessAlert builds a report for the current period and returns its key.
func (p ReportProcessor) ProcessAlert(ctx context.Context, msg queue.Message) (string, error) {
	if p.Source == nil || p.Store == nil {
		return "", errors.New("report processor not configured")
	}
	rep, err := report.Build(ctx, p.Source, kimola.DateRange{})
	if err != nil {
		return "", err
	}
	return report.Archive(ctx, p.Store, rep)
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, p Processor, body string) (queue.Message, string, error) {
	if p == nil {
		return queue.Message{}, "", errors.New("alert processor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, "", err
	}
	key, err := p.ProcessAlert(ctx, msg)
	if err != nil {
		return msg, "", ErrProcess{Resource: msg.Resource, SnapshotID: msg.SnapshotID, Err: err}
	}
	return msg, key, nil
}
