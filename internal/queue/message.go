package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// TypeUsageThreshold marks a usage bucket crossing the alert threshold.
const TypeUsageThreshold = "usage.threshold"

// Message is the payload sent to downstream alert consumers.
type Message struct {
	Type       string    `json:"type"`
	Resource   string    `json:"resource"`
	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	Percentage float64   `json:"percentage"`
	Threshold  float64   `json:"threshold"`
	SnapshotID string    `json:"snapshotId,omitempty"`
	TakenAt    time.Time `json:"takenAt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Version    int       `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
