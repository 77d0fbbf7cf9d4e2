package queue

import "context"

// Client publishes usage alert messages. SQSClient is the production
// implementation; notifiers and tests depend only on this interface.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
